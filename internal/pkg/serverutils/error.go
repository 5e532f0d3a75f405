package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// AppError carries an HTTP status out of the service layer.
type AppError struct {
	Code    int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func BadRequest(message string) *AppError {
	return &AppError{Code: fiber.StatusBadRequest, Message: message}
}

func NotFound(message string) *AppError {
	return &AppError{Code: fiber.StatusNotFound, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Code: fiber.StatusConflict, Message: message}
}

func Unprocessable(message string, err error) *AppError {
	return &AppError{Code: fiber.StatusUnprocessableEntity, Message: message, Err: err}
}

// ErrorHandlerMiddleware turns handler errors into the JSON error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

func WriteError(ctx *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		body := ErrorResponse(appErr.Code, appErr.Message)
		body.Errors = appErr.Fields
		return ctx.Status(appErr.Code).JSON(body)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	return ctx.Status(fiber.StatusInternalServerError).
		JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
}
