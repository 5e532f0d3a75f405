package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/dto"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/serverutils"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/repository/memory"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/websocket"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/events"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/encoder"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/executor"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/prompt"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/response"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	mu       sync.Mutex
	requests []*llm.Request
	reply    string
	err      error
	release  chan struct{}
}

func (p *scriptedProvider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.release != nil {
		<-p.release
	}
	return p.reply, p.err
}

func (p *scriptedProvider) Close() error { return nil }

type recordedFrame struct {
	sessionID string
	frameType string
}

type fakeNotifier struct {
	mu     sync.Mutex
	frames []recordedFrame
	closed []string
}

func (n *fakeNotifier) Publish(sessionID, frameType string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frames = append(n.frames, recordedFrame{sessionID, frameType})
}

func (n *fakeNotifier) CloseSession(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, sessionID)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	svc       ITutorService
	notifier  *fakeNotifier
	publisher *fakePublisher
}

func newFixture(exec QueryExecutor) fixture {
	n := &fakeNotifier{}
	p := &fakePublisher{}
	log := logger.NewNopLogger()
	svc := NewTutorService(
		memory.NewSessionRepository(time.Hour),
		prompt.NewBuilder("Hydraulics"),
		exec,
		response.NewInterpreter(log),
		p,
		n,
		log,
	)
	return fixture{svc: svc, notifier: n, publisher: p}
}

func newSession(t *testing.T, svc ITutorService) uuid.UUID {
	res, err := svc.CreateSession(context.Background())
	require.NoError(t, err)
	return res.Id
}

func lectureFiles() []encoder.File {
	return []encoder.File{
		encoder.FromBytes("notes1.pdf", "application/pdf", []byte("%PDF-1.4 continuity")),
		encoder.FromBytes("exam.png", "image/png", []byte("\x89PNG\r\n\x1a\n....")),
	}
}

func httpCode(t *testing.T, err error) int {
	var appErr *serverutils.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code
}

func TestPracticeTurnEndToEnd(t *testing.T) {
	provider := &scriptedProvider{reply: `{"problem":"A pipe of 0.2 m diameter...","solution":"Step 1: Q = A v ..."}`}
	f := newFixture(executor.NewWithProvider(provider, time.Second, nil))
	ctx := context.Background()
	id := newSession(t, f.svc)

	up, err := f.svc.UploadFiles(ctx, id, lectureFiles())
	require.NoError(t, err)
	assert.Equal(t, 2, up.Total)

	res, err := f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "PRACTICE_PROBLEM", Text: "Bernoulli"})
	require.NoError(t, err)
	assert.Equal(t, "none", res.Tier)
	assert.Empty(t, res.LastError)
	assert.Equal(t, dto.TurnTypePracticeProblem, res.Reply.Type)
	assert.Equal(t, "A pipe of 0.2 m diameter...", res.Reply.Problem)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	require.Len(t, req.Parts, 3)
	assert.Equal(t, "notes1.pdf", req.Parts[0].InlineData.DisplayName)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 continuity")), req.Parts[0].InlineData.Data)
	assert.Equal(t, "exam.png", req.Parts[1].InlineData.DisplayName)
	assert.Contains(t, req.Parts[2].Text, `"Bernoulli"`)
	assert.Equal(t, llm.MIMETypeJSON, req.ResponseMIMEType)
	assert.Same(t, prompt.PracticeProblemSchema, req.ResponseSchema)
	assert.Contains(t, req.SystemInstruction, "Hydraulics")

	state, err := f.svc.GetSession(ctx, id)
	require.NoError(t, err)
	require.Len(t, state.Turns, 2)
	assert.Equal(t, dto.TurnDTO{Type: "message", Sender: "user", Text: "Bernoulli"}, state.Turns[0])
	assert.Equal(t, "practice_problem", state.Turns[1].Type)
	assert.False(t, state.InFlight)

	assert.Equal(t, []string{events.TypeFilesUploaded, events.TypeTurnCompleted}, f.publisher.types())
}

func TestExplainTurnHasNoContract(t *testing.T) {
	provider := &scriptedProvider{reply: "Continuity says Q is constant."}
	f := newFixture(executor.NewWithProvider(provider, time.Second, nil))
	ctx := context.Background()
	id := newSession(t, f.svc)
	_, err := f.svc.UploadFiles(ctx, id, lectureFiles())
	require.NoError(t, err)

	res, err := f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: "continuity"})
	require.NoError(t, err)
	assert.Equal(t, dto.TurnDTO{Type: "message", Sender: "assistant", Text: "Continuity says Q is constant."}, res.Reply)
	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	require.Len(t, req.Parts, 3)
	assert.Equal(t, "notes1.pdf", req.Parts[0].InlineData.DisplayName)
	assert.Equal(t, "exam.png", req.Parts[1].InlineData.DisplayName)
	assert.Contains(t, req.Parts[2].Text, `"continuity"`)
	assert.Empty(t, req.ResponseMIMEType)
	assert.Nil(t, req.ResponseSchema)

	state, err := f.svc.GetSession(ctx, id)
	require.NoError(t, err)
	require.Len(t, state.Turns, 2)
	assert.Equal(t, dto.TurnDTO{Type: "message", Sender: "user", Text: "continuity"}, state.Turns[0])
	assert.Equal(t, res.Reply, state.Turns[1])
}

func TestUserTextKeptAsTyped(t *testing.T) {
	provider := &scriptedProvider{reply: "ok"}
	f := newFixture(executor.NewWithProvider(provider, time.Second, nil))
	ctx := context.Background()
	id := newSession(t, f.svc)
	_, err := f.svc.UploadFiles(ctx, id, lectureFiles())
	require.NoError(t, err)

	typed := "  what is head loss?\n"
	res, err := f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: typed})
	require.NoError(t, err)

	assert.Equal(t, typed, res.Sent.Text)
	assert.Contains(t, provider.requests[0].Parts[2].Text, `"  what is head loss?\n"`)
}

func TestMissingCredentialShowsFailureTurnAndBanner(t *testing.T) {
	connects := 0
	exec := executor.New(executor.Config{CredentialRequired: true}, func(context.Context, string) (llm.Provider, error) {
		connects++
		return &scriptedProvider{}, nil
	}, nil)
	f := newFixture(exec)
	ctx := context.Background()
	id := newSession(t, f.svc)
	_, err := f.svc.UploadFiles(ctx, id, lectureFiles())
	require.NoError(t, err)

	res, err := f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: "x"})
	require.NoError(t, err)
	assert.Zero(t, connects)
	assert.Equal(t, "failure", res.Tier)
	assert.Contains(t, res.Reply.Text, "ConfigError")
	assert.Equal(t, "Error communicating with AI: ConfigError: missing credential", res.LastError)

	state, err := f.svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Len(t, state.Turns, 2)
	assert.Equal(t, res.LastError, state.LastError)
}

func TestModelErrorThenRecovery(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("upstream 500")}
	f := newFixture(executor.NewWithProvider(provider, time.Second, nil))
	ctx := context.Background()
	id := newSession(t, f.svc)
	_, err := f.svc.UploadFiles(ctx, id, lectureFiles())
	require.NoError(t, err)

	res, err := f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: "x"})
	require.NoError(t, err)
	assert.Contains(t, res.LastError, "ModelCallError")

	provider.err = nil
	provider.reply = "fine now"
	res, err = f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: "x"})
	require.NoError(t, err)
	assert.Empty(t, res.LastError)

	state, _ := f.svc.GetSession(ctx, id)
	assert.Len(t, state.Turns, 4)
	assert.Empty(t, state.LastError)
}

func TestDecodeFallbackEmitsDiagnosticsEvent(t *testing.T) {
	provider := &scriptedProvider{reply: "not json at all"}
	f := newFixture(executor.NewWithProvider(provider, time.Second, nil))
	ctx := context.Background()
	id := newSession(t, f.svc)
	_, err := f.svc.UploadFiles(ctx, id, lectureFiles())
	require.NoError(t, err)

	res, err := f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "PRACTICE_PROBLEM", Text: "weirs"})
	require.NoError(t, err)
	assert.Equal(t, "raw_fallback", res.Tier)
	assert.Empty(t, res.LastError, "decode errors are not failures")
	assert.Contains(t, res.Reply.Text, "not json at all")

	assert.Contains(t, f.publisher.types(), events.TypeStructuredDecodeFailed)
	last := f.publisher.events[len(f.publisher.events)-1]
	assert.Equal(t, "not json at all", last.Payload()["raw_text"])
}

func TestSendTurnRejections(t *testing.T) {
	provider := &scriptedProvider{reply: "x"}
	f := newFixture(executor.NewWithProvider(provider, time.Second, nil))
	ctx := context.Background()
	id := newSession(t, f.svc)

	_, err := f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: "x"})
	assert.Equal(t, 400, httpCode(t, err), "no files")

	_, err = f.svc.UploadFiles(ctx, id, lectureFiles())
	require.NoError(t, err)

	tests := []struct {
		name string
		req  dto.SendTurnRequest
		code int
	}{
		{name: "blank text", req: dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: "  \n"}, code: 400},
		{name: "unknown mode", req: dto.SendTurnRequest{Mode: "SUMMARIZE", Text: "x"}, code: 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SendTurn(ctx, id, &tt.req)
			assert.Equal(t, tt.code, httpCode(t, err))
		})
	}

	_, err = f.svc.SendTurn(ctx, uuid.New(), &dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: "x"})
	assert.Equal(t, 404, httpCode(t, err))

	state, _ := f.svc.GetSession(ctx, id)
	assert.Empty(t, state.Turns, "rejected submits leave no turns")
	assert.Empty(t, provider.requests)
}

func TestSecondSubmitWhileInFlightConflicts(t *testing.T) {
	provider := &scriptedProvider{reply: "slow answer", release: make(chan struct{})}
	f := newFixture(executor.NewWithProvider(provider, 5*time.Second, nil))
	ctx := context.Background()
	id := newSession(t, f.svc)
	_, err := f.svc.UploadFiles(ctx, id, lectureFiles())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: "first"})
		done <- err
	}()

	require.Eventually(t, func() bool {
		st, _ := f.svc.Status(ctx, id)
		return st != nil && st.InFlight
	}, time.Second, 5*time.Millisecond)

	_, err = f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: "second"})
	assert.Equal(t, 409, httpCode(t, err))

	close(provider.release)
	require.NoError(t, <-done)

	state, _ := f.svc.GetSession(ctx, id)
	assert.Len(t, state.Turns, 2)
}

func TestUploadFailureLeavesFileSetUnchanged(t *testing.T) {
	f := newFixture(executor.NewWithProvider(&scriptedProvider{}, time.Second, nil))
	ctx := context.Background()
	id := newSession(t, f.svc)
	_, err := f.svc.UploadFiles(ctx, id, lectureFiles()[:1])
	require.NoError(t, err)

	bad := []encoder.File{
		encoder.FromBytes("ok.txt", "text/plain", []byte("ok")),
		encoder.FromPath("/definitely/not/here.pdf"),
	}
	_, err = f.svc.UploadFiles(ctx, id, bad)
	assert.Equal(t, 422, httpCode(t, err))
	kind, ok := tutor.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, tutor.FileReadError, kind)

	state, _ := f.svc.GetSession(ctx, id)
	assert.Len(t, state.Files, 1)
}

func TestRemoveResetDelete(t *testing.T) {
	provider := &scriptedProvider{reply: "answer"}
	f := newFixture(executor.NewWithProvider(provider, time.Second, nil))
	ctx := context.Background()
	id := newSession(t, f.svc)
	_, err := f.svc.UploadFiles(ctx, id, lectureFiles())
	require.NoError(t, err)

	rm, err := f.svc.RemoveFile(ctx, id, "exam.png")
	require.NoError(t, err)
	assert.Equal(t, 1, rm.Removed)
	assert.Equal(t, 1, rm.Total)

	_, err = f.svc.RemoveFile(ctx, id, "exam.png")
	assert.Equal(t, 404, httpCode(t, err))

	_, err = f.svc.SendTurn(ctx, id, &dto.SendTurnRequest{Mode: "EXPLAIN_CONCEPT", Text: "x"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		state, err := f.svc.Reset(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, state.Turns)
		assert.Empty(t, state.Files)
		assert.Empty(t, state.LastError)
	}

	require.NoError(t, f.svc.DeleteSession(ctx, id))
	assert.Equal(t, 404, httpCode(t, f.svc.DeleteSession(ctx, id)))
	assert.Equal(t, []string{id.String()}, f.notifier.closed)

	var resetFrames int
	for _, fr := range f.notifier.frames {
		if fr.frameType == websocket.FrameReset {
			resetFrames++
		}
	}
	assert.Equal(t, 2, resetFrames)
}

func TestExpiredSessionDisconnectsWatchers(t *testing.T) {
	n := &fakeNotifier{}
	log := logger.NewNopLogger()
	svc := NewTutorService(
		memory.NewSessionRepository(50*time.Millisecond),
		prompt.NewBuilder("Hydraulics"),
		executor.NewWithProvider(&scriptedProvider{reply: "x"}, time.Second, log),
		response.NewInterpreter(log),
		nil,
		n,
		log,
	)
	id := newSession(t, svc)

	// the janitor sweeps at most once a second
	require.Eventually(t, func() bool {
		n.mu.Lock()
		defer n.mu.Unlock()
		return len(n.closed) == 1
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, id.String(), n.closed[0])
	_, err := svc.GetSession(context.Background(), id)
	assert.Equal(t, 404, httpCode(t, err))
}

func TestHealthCountsLiveSessions(t *testing.T) {
	f := newFixture(executor.NewWithProvider(&scriptedProvider{reply: "x"}, time.Second, nil))
	ctx := context.Background()

	assert.Equal(t, 0, f.svc.Health(ctx).ActiveSessions)

	a := newSession(t, f.svc)
	newSession(t, f.svc)
	require.NoError(t, f.svc.DeleteSession(ctx, a))

	h := f.svc.Health(ctx)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "Hydraulics", h.CourseName)
	assert.Equal(t, 1, h.ActiveSessions)
}
