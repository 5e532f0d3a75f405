package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/dto"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/mapper"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/serverutils"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/repository/memory"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/websocket"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/events"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/store"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/encoder"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/prompt"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/response"

	"github.com/google/uuid"
)

const tutorModule = "TUTOR_SERVICE"

// QueryExecutor dispatches one composed request; *executor.Executor implements it.
type QueryExecutor interface {
	Execute(ctx context.Context, files []tutor.EncodedFile, instructionText, systemInstruction string, contract *llm.Schema) tutor.Outcome
}

// SessionNotifier pushes frames to live watchers of a session; *websocket.Hub implements it.
type SessionNotifier interface {
	Publish(sessionID, frameType string, data interface{})
	CloseSession(sessionID string)
}

type ITutorService interface {
	CreateSession(ctx context.Context) (*dto.CreateTutorSessionResponse, error)
	GetSession(ctx context.Context, sessionId uuid.UUID) (*dto.TutorSessionResponse, error)
	UploadFiles(ctx context.Context, sessionId uuid.UUID, files []encoder.File) (*dto.UploadFilesResponse, error)
	RemoveFile(ctx context.Context, sessionId uuid.UUID, displayName string) (*dto.RemoveFileResponse, error)
	SendTurn(ctx context.Context, sessionId uuid.UUID, request *dto.SendTurnRequest) (*dto.SendTurnResponse, error)
	Reset(ctx context.Context, sessionId uuid.UUID) (*dto.TutorSessionResponse, error)
	DeleteSession(ctx context.Context, sessionId uuid.UUID) error
	Status(ctx context.Context, sessionId uuid.UUID) (*dto.SessionStatusDTO, error)
	Health(ctx context.Context) *dto.HealthDTO
}

type tutorService struct {
	sessionRepo *memory.SessionRepository
	builder     *prompt.Builder
	executor    QueryExecutor
	interpreter *response.Interpreter
	publisher   IPublisherService
	notifier    SessionNotifier
	mapper      *mapper.TutorMapper
	logger      logger.ILogger
}

// NewTutorService wires the tutoring pipeline. publisher and notifier may be
// nil, as in the terminal client.
func NewTutorService(
	sessionRepo *memory.SessionRepository,
	builder *prompt.Builder,
	executor QueryExecutor,
	interpreter *response.Interpreter,
	publisher IPublisherService,
	notifier SessionNotifier,
	log logger.ILogger,
) ITutorService {
	s := &tutorService{
		sessionRepo: sessionRepo,
		builder:     builder,
		executor:    executor,
		interpreter: interpreter,
		publisher:   publisher,
		notifier:    notifier,
		mapper:      mapper.NewTutorMapper(),
		logger:      log,
	}
	// fires for both TTL expiry and DeleteSession
	sessionRepo.OnExpired(s.sessionEnded)
	return s
}

func (s *tutorService) CreateSession(ctx context.Context) (*dto.CreateTutorSessionResponse, error) {
	id := uuid.New()
	session := store.NewSession(id.String())
	s.sessionRepo.Save(session)

	s.logger.Info(tutorModule, "Session created", map[string]interface{}{"session_id": session.ID})
	return &dto.CreateTutorSessionResponse{
		Id:         id,
		CourseName: s.builder.CourseName(),
		CreatedAt:  session.CreatedAt,
	}, nil
}

func (s *tutorService) GetSession(ctx context.Context, sessionId uuid.UUID) (*dto.TutorSessionResponse, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}
	return s.mapper.SnapshotToDTO(session.Snapshot(), s.builder.CourseName()), nil
}

// UploadFiles encodes the whole batch before touching the session, so a
// failed read leaves the file set unchanged.
func (s *tutorService) UploadFiles(ctx context.Context, sessionId uuid.UUID, files []encoder.File) (*dto.UploadFilesResponse, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, serverutils.BadRequest("No files provided")
	}

	encoded, err := encoder.EncodeAll(ctx, files)
	if err != nil {
		s.logger.Warn(tutorModule, "File encoding failed", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return nil, serverutils.Unprocessable(err.Error(), err)
	}

	total := session.AddFiles(encoded)
	added := s.mapper.FilesToDTO(encoded)

	names := make([]string, 0, len(encoded))
	for _, f := range encoded {
		names = append(names, f.DisplayName)
	}
	s.logger.Info(tutorModule, "Files added", map[string]interface{}{
		"session_id": session.ID,
		"files":      names,
		"total":      total,
	})
	s.emit(ctx, events.NewFilesUploaded(session.ID, names, total))
	s.notify(session.ID, websocket.FrameFiles, s.mapper.FilesToDTO(session.Snapshot().Files))

	return &dto.UploadFilesResponse{Added: added, Total: total}, nil
}

func (s *tutorService) RemoveFile(ctx context.Context, sessionId uuid.UUID, displayName string) (*dto.RemoveFileResponse, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}

	removed := session.RemoveFiles(displayName)
	if removed == 0 {
		return nil, serverutils.NotFound("File not found")
	}
	snap := session.Snapshot()
	s.notify(session.ID, websocket.FrameFiles, s.mapper.FilesToDTO(snap.Files))

	return &dto.RemoveFileResponse{Removed: removed, Total: len(snap.Files)}, nil
}

func (s *tutorService) SendTurn(ctx context.Context, sessionId uuid.UUID, request *dto.SendTurnRequest) (*dto.SendTurnResponse, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}

	mode, err := tutor.ParseMode(request.Mode)
	if err != nil {
		return nil, serverutils.BadRequest(err.Error())
	}
	// trimmed only for the blank check; the turn keeps what the user typed
	if strings.TrimSpace(request.Text) == "" {
		return nil, serverutils.BadRequest("Text is required")
	}
	text := request.Text

	p, err := s.builder.Build(mode, text)
	if err != nil {
		return nil, serverutils.BadRequest(err.Error())
	}

	userTurn := tutor.UserMessage(text)
	ticket, err := session.BeginTurn(userTurn)
	switch {
	case errors.Is(err, store.ErrTurnInFlight):
		return nil, serverutils.Conflict("A question is already being answered for this session")
	case errors.Is(err, store.ErrNoFiles):
		return nil, serverutils.BadRequest("Upload at least one file before asking")
	case err != nil:
		return nil, err
	}

	s.notify(session.ID, websocket.FrameTurn, s.mapper.TurnToDTO(userTurn))
	s.notify(session.ID, websocket.FrameStatus, dto.SessionStatusDTO{InFlight: true})

	start := time.Now()
	outcome := s.executor.Execute(ctx, ticket.Files, p.InstructionText, s.builder.SystemInstruction(), p.OutputContract)
	result := s.interpreter.InterpretDetailed(outcome, mode)
	elapsed := time.Since(start)

	banner := ""
	if outcome.Failed {
		banner = response.BannerText(outcome)
	}

	if !session.CompleteTurn(ticket, result.Turn, banner) {
		s.logger.Info(tutorModule, "Discarding reply for a reset session", map[string]interface{}{"session_id": session.ID})
		return nil, serverutils.Conflict("Session was reset while the question was being answered")
	}

	reply := s.mapper.TurnToDTO(result.Turn)
	s.notify(session.ID, websocket.FrameTurn, reply)
	s.notify(session.ID, websocket.FrameStatus, dto.SessionStatusDTO{LastError: banner})

	s.logger.Info(tutorModule, "Turn completed", map[string]interface{}{
		"session_id": session.ID,
		"mode":       string(mode),
		"files":      len(ticket.Files),
		"tier":       string(result.Tier),
		"outcome":    outcome.String(),
		"duration":   elapsed.String(),
	})
	s.emit(ctx, events.NewTurnCompleted(session.ID, string(mode), string(result.Tier), string(outcome.Kind), elapsed))
	if result.Tier == response.TierRawFallback || result.Tier == response.TierFieldFallback {
		s.emit(ctx, events.NewStructuredDecodeFailed(session.ID, string(result.Tier), outcome.Text, result.MissingFields))
	}

	return &dto.SendTurnResponse{
		Sent:      s.mapper.TurnToDTO(userTurn),
		Reply:     reply,
		Tier:      string(result.Tier),
		LastError: banner,
	}, nil
}

func (s *tutorService) Reset(ctx context.Context, sessionId uuid.UUID) (*dto.TutorSessionResponse, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}

	session.Reset()
	s.logger.Info(tutorModule, "Session reset", map[string]interface{}{"session_id": session.ID})
	s.emit(ctx, events.NewSessionReset(session.ID))
	s.notify(session.ID, websocket.FrameReset, nil)

	return s.mapper.SnapshotToDTO(session.Snapshot(), s.builder.CourseName()), nil
}

func (s *tutorService) DeleteSession(ctx context.Context, sessionId uuid.UUID) error {
	if !s.sessionRepo.Delete(sessionId.String()) {
		return serverutils.NotFound("Session not found")
	}
	s.logger.Info(tutorModule, "Session deleted", map[string]interface{}{"session_id": sessionId.String()})
	return nil
}

func (s *tutorService) sessionEnded(sessionID string) {
	s.logger.Info(tutorModule, "Session closed", map[string]interface{}{"session_id": sessionID})
	if s.notifier != nil {
		s.notifier.CloseSession(sessionID)
	}
}

func (s *tutorService) Status(ctx context.Context, sessionId uuid.UUID) (*dto.SessionStatusDTO, error) {
	session, err := s.find(sessionId)
	if err != nil {
		return nil, err
	}
	snap := session.Snapshot()
	return &dto.SessionStatusDTO{InFlight: snap.InFlight, LastError: snap.LastError}, nil
}

func (s *tutorService) Health(ctx context.Context) *dto.HealthDTO {
	return &dto.HealthDTO{
		Status:         "ok",
		CourseName:     s.builder.CourseName(),
		ActiveSessions: s.sessionRepo.Count(),
	}
}

func (s *tutorService) find(sessionId uuid.UUID) (*store.Session, error) {
	session, ok := s.sessionRepo.Get(sessionId.String())
	if !ok {
		return nil, serverutils.NotFound("Session not found")
	}
	return session, nil
}

func (s *tutorService) emit(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn(tutorModule, "Event publish failed", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

func (s *tutorService) notify(sessionID, frameType string, data interface{}) {
	if s.notifier != nil {
		s.notifier.Publish(sessionID, frameType, data)
	}
}
