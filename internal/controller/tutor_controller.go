package controller

import (
	"net/url"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/dto"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/serverutils"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/service"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/encoder"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const uploadField = "files"

type ITutorController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	UploadFiles(ctx *fiber.Ctx) error
	RemoveFile(ctx *fiber.Ctx) error
	SendTurn(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	Diagnostics(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type tutorController struct {
	service     service.ITutorService
	diagnostics service.IDiagnosticsService
}

func NewTutorController(service service.ITutorService, diagnostics service.IDiagnosticsService) ITutorController {
	return &tutorController{service: service, diagnostics: diagnostics}
}

func (c *tutorController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/tutor/v1")
	h.Post("/sessions", c.CreateSession)
	h.Get("/sessions/:id", c.GetSession)
	h.Post("/sessions/:id/files", c.UploadFiles)
	h.Delete("/sessions/:id/files/:name", c.RemoveFile)
	h.Post("/sessions/:id/turns", c.SendTurn)
	h.Post("/sessions/:id/reset", c.Reset)
	h.Delete("/sessions/:id", c.DeleteSession)
	h.Get("/diagnostics", c.Diagnostics)
	h.Get("/health", c.Health)
}

func sessionID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, serverutils.BadRequest("Invalid session id")
	}
	return id, nil
}

func (c *tutorController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.service.CreateSession(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.CreatedResponse("Success create session", res))
}

func (c *tutorController) GetSession(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetSession(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *tutorController) UploadFiles(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return serverutils.BadRequest("Expected multipart form with field 'files'")
	}
	headers := form.File[uploadField]
	if len(headers) == 0 {
		return serverutils.BadRequest("No files provided")
	}

	files := make([]encoder.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, encoder.FromMultipart(fh))
	}

	res, err := c.service.UploadFiles(ctx.UserContext(), id, files)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success upload files", res))
}

func (c *tutorController) RemoveFile(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	// fiber leaves params escaped; "Lecture 1.pdf" arrives as "Lecture%201.pdf"
	name, err := url.PathUnescape(ctx.Params("name"))
	if err != nil {
		return serverutils.BadRequest("Invalid file name")
	}

	res, err := c.service.RemoveFile(ctx.UserContext(), id, name)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success remove file", res))
}

func (c *tutorController) SendTurn(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	var req dto.SendTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequest("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendTurn(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send turn", res))
}

func (c *tutorController) Reset(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Reset(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success reset session", res))
}

func (c *tutorController) DeleteSession(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteSession(ctx.UserContext(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

func (c *tutorController) Diagnostics(ctx *fiber.Ctx) error {
	res, err := c.diagnostics.List(ctx.UserContext(), ctx.Query("level"), ctx.QueryInt("limit", 50), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get diagnostics", res))
}

func (c *tutorController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", c.service.Health(ctx.UserContext())))
}
