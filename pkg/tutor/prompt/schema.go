package prompt

import (
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/constant"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"
)

// PracticeProblemSchema is the output contract for practice mode. The builder
// attaches it to requests and the response interpreter validates against it.
var PracticeProblemSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		constant.PracticeFieldProblem: {
			Type:        llm.TypeString,
			Description: constant.PracticeProblemFieldDescription,
		},
		constant.PracticeFieldSolution: {
			Type:        llm.TypeString,
			Description: constant.PracticeSolutionFieldDescription,
		},
	},
	Order:    []string{constant.PracticeFieldProblem, constant.PracticeFieldSolution},
	Required: []string{constant.PracticeFieldProblem, constant.PracticeFieldSolution},
}
