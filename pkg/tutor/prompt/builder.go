package prompt

import (
	"fmt"
	"strings"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/constant"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"
)

// Prompt is the mode-specific half of a request. OutputContract is nil for
// free-text modes.
type Prompt struct {
	InstructionText string
	OutputContract  *llm.Schema
}

// Builder renders instruction text for a course
type Builder struct {
	courseName string
}

// NewBuilder creates a prompt builder; an empty course name uses the default.
func NewBuilder(courseName string) *Builder {
	if strings.TrimSpace(courseName) == "" {
		courseName = constant.DefaultCourseName
	}
	return &Builder{courseName: courseName}
}

// Build wraps the user's request in the template for mode.
func (b *Builder) Build(mode tutor.TutorMode, userText string) (Prompt, error) {
	switch mode {
	case tutor.ModeExplainConcept:
		return Prompt{
			InstructionText: fmt.Sprintf(constant.ExplainConceptPromptV1, userText),
		}, nil
	case tutor.ModePracticeProblem:
		return Prompt{
			InstructionText: fmt.Sprintf(constant.PracticeProblemPromptV1, userText),
			OutputContract:  PracticeProblemSchema,
		}, nil
	default:
		return Prompt{}, fmt.Errorf("prompt: unknown tutor mode %q", mode)
	}
}

// SystemInstruction is the grounding instruction attached to every request,
// whatever the mode.
func (b *Builder) SystemInstruction() string {
	return fmt.Sprintf(constant.TutorSystemInstructionV1, b.courseName)
}

func (b *Builder) CourseName() string {
	return b.courseName
}
