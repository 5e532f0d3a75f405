package response

import (
	"fmt"
	"strings"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/constant"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/llm"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor/prompt"

	"github.com/tidwall/gjson"
)

const module = "INTERPRETER"

// Tier is how far down the degradation ladder an interpretation went.
type Tier string

const (
	TierNone          Tier = "none"
	TierFieldFallback Tier = "field_fallback"
	TierRawFallback   Tier = "raw_fallback"
	TierFailure       Tier = "failure"
)

type Result struct {
	Turn tutor.Turn
	Tier Tier
	// MissingFields lists the contract fields replaced by placeholders.
	MissingFields []string
}

// Interpreter turns a query outcome into a transcript turn. It never fails.
type Interpreter struct {
	schema       *llm.Schema
	placeholders map[string]string
	logger       logger.ILogger
}

func NewInterpreter(log logger.ILogger) *Interpreter {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Interpreter{
		schema: prompt.PracticeProblemSchema,
		placeholders: map[string]string{
			constant.PracticeFieldProblem:  constant.PlaceholderMissingProblem,
			constant.PracticeFieldSolution: constant.PlaceholderMissingSolution,
		},
		logger: log,
	}
}

func (i *Interpreter) Interpret(outcome tutor.Outcome, mode tutor.TutorMode) tutor.Turn {
	return i.InterpretDetailed(outcome, mode).Turn
}

func (i *Interpreter) InterpretDetailed(outcome tutor.Outcome, mode tutor.TutorMode) Result {
	if outcome.Failed {
		return Result{Turn: tutor.AssistantMessage(FailureText(outcome)), Tier: TierFailure}
	}
	if mode != tutor.ModePracticeProblem {
		return Result{Turn: tutor.AssistantMessage(outcome.Text), Tier: TierNone}
	}
	return i.decodePractice(outcome.Text)
}

func (i *Interpreter) decodePractice(raw string) Result {
	body := stripCodeFence(raw)
	if !gjson.Valid(body) || !gjson.Parse(body).IsObject() {
		i.logger.Warn(module, "Structured output is not a JSON object", map[string]interface{}{
			"length": len(raw),
		})
		return Result{
			Turn: tutor.AssistantMessage(constant.PracticeDecodeFailurePrefix + raw),
			Tier: TierRawFallback,
		}
	}

	doc := gjson.Parse(body)
	values := make(map[string]string, len(i.schema.Order))
	var missing []string
	for _, field := range i.schema.Order {
		v := doc.Get(gjson.Escape(field))
		if v.Type != gjson.String || strings.TrimSpace(v.Str) == "" {
			values[field] = i.placeholders[field]
			missing = append(missing, field)
			continue
		}
		values[field] = v.Str
	}

	tier := TierNone
	if len(missing) > 0 {
		tier = TierFieldFallback
		i.logger.Warn(module, "Structured output missing fields", map[string]interface{}{
			"fields": missing,
		})
	}
	return Result{
		Turn: tutor.PracticeRecord{
			Problem:  values[constant.PracticeFieldProblem],
			Solution: values[constant.PracticeFieldSolution],
		},
		Tier:          tier,
		MissingFields: missing,
	}
}

// FailureText renders a failed outcome so the kind and detail stay visible.
func FailureText(o tutor.Outcome) string {
	return fmt.Sprintf("%s(%s) %s", constant.TurnFailurePrefix, o.Kind, o.Detail)
}

// BannerText is the transient session banner for a failed outcome.
func BannerText(o tutor.Outcome) string {
	return fmt.Sprintf("%s%s: %s", constant.BannerFailurePrefix, o.Kind, o.Detail)
}

// stripCodeFence removes one surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return t
	}
	t = strings.TrimSuffix(strings.TrimPrefix(t, "```"), "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 && !strings.ContainsAny(t[:nl], "{[") {
		t = t[nl+1:]
	}
	return strings.TrimSpace(t)
}
