package handler

import (
	"encoding/json"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/serverutils"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/service"
	internalWS "github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// SessionStreamHandler serves the per-session status channel.
type SessionStreamHandler struct {
	service service.ITutorService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewSessionStreamHandler(service service.ITutorService, hub *internalWS.Hub, log logger.ILogger) *SessionStreamHandler {
	return &SessionStreamHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

func (h *SessionStreamHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/tutor/v1/sessions/:id/ws", h.ServeWs)
}

// ServeWs checks the session exists, then upgrades and streams its frames.
// The first frame is always the current status.
func (h *SessionStreamHandler) ServeWs(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return serverutils.BadRequest("Invalid session id")
	}

	status, err := h.service.Status(c.UserContext(), id)
	if err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	initial, _ := json.Marshal(internalWS.Frame{
		Type:      internalWS.FrameStatus,
		SessionID: id.String(),
		Data:      status,
	})

	sessionID := id.String()
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SessionStream", "Watcher connected", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(h.hub, conn, sessionID, initial)
		h.logger.Info("SessionStream", "Watcher disconnected", map[string]interface{}{"session_id": sessionID})
	})(c)
}
