package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/serverutils"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/repository/memory"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/service"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/executor"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/prompt"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/response"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply string
	parts int
}

func (s *stubProvider) Generate(_ context.Context, req *llm.Request) (string, error) {
	s.parts = len(req.Parts)
	return s.reply, nil
}

func (s *stubProvider) Close() error { return nil }

type envelope struct {
	Success bool              `json:"success"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func newApp(t *testing.T, provider llm.Provider) *fiber.App {
	log := logger.NewNopLogger()
	svc := service.NewTutorService(
		memory.NewSessionRepository(time.Hour),
		prompt.NewBuilder(""),
		executor.NewWithProvider(provider, time.Second, log),
		response.NewInterpreter(log),
		nil,
		nil,
		log,
	)
	diag := service.NewDiagnosticsService(logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "diag.log")))

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewTutorController(svc, diag).RegisterRoutes(app.Group("/api"))
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var buf io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, path string, files map[string][]byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, data := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		h.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func createSession(t *testing.T, app *fiber.App) string {
	code, env := do(t, app, jsonRequest(http.MethodPost, "/api/tutor/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, http.StatusCreated, env.Code)

	var created struct {
		Id         string `json:"id"`
		CourseName string `json:"course_name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "Hydraulics", created.CourseName)
	return created.Id
}

func TestTutorFlowOverHTTP(t *testing.T) {
	provider := &stubProvider{reply: `{"problem":"P","solution":"S"}`}
	app := newApp(t, provider)
	id := createSession(t, app)
	base := "/api/tutor/v1/sessions/" + id

	code, env := do(t, app, uploadRequest(t, base+"/files", map[string][]byte{"notes1.pdf": []byte("%PDF-1.4")}))
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = do(t, app, jsonRequest(http.MethodPost, base+"/turns", map[string]string{
		"mode": "PRACTICE_PROBLEM",
		"text": "Bernoulli",
	}))
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, 2, provider.parts)

	var turn struct {
		Reply struct {
			Type     string `json:"type"`
			Problem  string `json:"problem"`
			Solution string `json:"solution"`
		} `json:"reply"`
		Tier string `json:"tier"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &turn))
	assert.Equal(t, "practice_problem", turn.Reply.Type)
	assert.Equal(t, "P", turn.Reply.Problem)
	assert.Equal(t, "none", turn.Tier)

	code, env = do(t, app, jsonRequest(http.MethodGet, base, nil))
	require.Equal(t, http.StatusOK, code)
	var state struct {
		Files []struct {
			DisplayName string `json:"display_name"`
			MimeType    string `json:"mime_type"`
		} `json:"files"`
		Turns []json.RawMessage `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &state))
	require.Len(t, state.Files, 1)
	assert.Equal(t, "notes1.pdf", state.Files[0].DisplayName)
	assert.Equal(t, "application/pdf", state.Files[0].MimeType)
	assert.Len(t, state.Turns, 2)

	code, _ = do(t, app, jsonRequest(http.MethodDelete, base+"/files/notes1.pdf", nil))
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, app, jsonRequest(http.MethodPost, base+"/reset", nil))
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, app, jsonRequest(http.MethodDelete, base, nil))
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, app, jsonRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTurnValidation(t *testing.T) {
	app := newApp(t, &stubProvider{reply: "x"})
	id := createSession(t, app)
	path := "/api/tutor/v1/sessions/" + id + "/turns"

	tests := []struct {
		name  string
		body  map[string]string
		code  int
		field string
	}{
		{name: "blank text", body: map[string]string{"mode": "EXPLAIN_CONCEPT", "text": "   "}, code: 400, field: "text"},
		{name: "unknown mode", body: map[string]string{"mode": "QUIZ", "text": "x"}, code: 400, field: "mode"},
		{name: "no files yet", body: map[string]string{"mode": "EXPLAIN_CONCEPT", "text": "x"}, code: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, app, jsonRequest(http.MethodPost, path, tt.body))
			assert.Equal(t, tt.code, code)
			assert.False(t, env.Success)
			if tt.field != "" {
				assert.Contains(t, env.Errors, tt.field)
			}
		})
	}
}

func TestBadSessionIds(t *testing.T) {
	app := newApp(t, &stubProvider{})

	code, _ := do(t, app, jsonRequest(http.MethodGet, "/api/tutor/v1/sessions/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, jsonRequest(http.MethodGet, "/api/tutor/v1/sessions/6f1c2f0e-6c61-4a3a-9d1e-2f0a9b8c7d6e", nil))
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, app, jsonRequest(http.MethodGet, "/api/tutor/v1/diagnostics?level=warn", nil))
	assert.Equal(t, http.StatusOK, code)
}

func TestRemoveFileWithSpaceInName(t *testing.T) {
	app := newApp(t, &stubProvider{reply: "x"})
	id := createSession(t, app)
	base := "/api/tutor/v1/sessions/" + id

	code, env := do(t, app, uploadRequest(t, base+"/files", map[string][]byte{
		"Lecture 1.pdf": []byte("%PDF-1.4 lecture"),
		"Exam.pdf":      []byte("%PDF-1.4 exam"),
	}))
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = do(t, app, jsonRequest(http.MethodDelete, base+"/files/Lecture%201.pdf", nil))
	require.Equal(t, http.StatusOK, code, env.Message)

	var removed struct {
		Removed int `json:"removed"`
		Total   int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &removed))
	assert.Equal(t, 1, removed.Removed)
	assert.Equal(t, 1, removed.Total)
}

func TestModeIsCaseInsensitive(t *testing.T) {
	provider := &stubProvider{reply: `{"problem":"P","solution":"S"}`}
	app := newApp(t, provider)
	id := createSession(t, app)
	base := "/api/tutor/v1/sessions/" + id

	code, env := do(t, app, uploadRequest(t, base+"/files", map[string][]byte{"notes1.pdf": []byte("%PDF-1.4")}))
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = do(t, app, jsonRequest(http.MethodPost, base+"/turns", map[string]string{
		"mode": "practice_problem",
		"text": "Bernoulli",
	}))
	require.Equal(t, http.StatusOK, code, env.Message)

	var turn struct {
		Reply struct {
			Type string `json:"type"`
		} `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &turn))
	assert.Equal(t, "practice_problem", turn.Reply.Type)
}
