package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// same normalization the service applies, so "practice_problem" passes
	_ = validate.RegisterValidation("tutormode", func(fl validator.FieldLevel) bool {
		_, err := tutor.ParseMode(fl.Field().String())
		return err == nil
	})
}

// ValidateRequest checks struct tags and reports failures as a 400 AppError
// with one message per field.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest(err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = describe(fe)
	}
	appErr := BadRequest("Validation failed")
	appErr.Fields = fields
	return appErr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "tutormode":
		return fmt.Sprintf("must be one of [%s %s]", tutor.ModeExplainConcept, tutor.ModePracticeProblem)
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
