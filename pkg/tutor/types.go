// Package tutor holds the data model shared by the tutoring pipeline:
// modes, encoded files, transcript turns and query outcomes.
package tutor

import (
	"fmt"
	"strings"
)

// TutorMode selects both the prompt shape and the response decoding strategy.
type TutorMode string

const (
	ModeExplainConcept  TutorMode = "EXPLAIN_CONCEPT"
	ModePracticeProblem TutorMode = "PRACTICE_PROBLEM"
)

// ParseMode converts a wire value into a TutorMode.
func ParseMode(s string) (TutorMode, error) {
	switch TutorMode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeExplainConcept:
		return ModeExplainConcept, nil
	case ModePracticeProblem:
		return ModePracticeProblem, nil
	default:
		return "", fmt.Errorf("unknown tutor mode %q", s)
	}
}

func (m TutorMode) Valid() bool {
	return m == ModeExplainConcept || m == ModePracticeProblem
}

// EncodedFile is an uploaded document ready to be inlined into a model request.
// Payload is the standard base64 encoding of the exact bytes read.
type EncodedFile struct {
	DisplayName string `json:"display_name"`
	MimeType    string `json:"mime_type"`
	Payload     string `json:"-"`
}

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one transcript entry. The only implementations are Message and
// PracticeRecord.
type Turn interface {
	Speaker() Speaker
	isTurn()
}

// Message is a plain-text turn from either side of the conversation.
type Message struct {
	From Speaker
	Text string
}

func (m Message) Speaker() Speaker { return m.From }
func (Message) isTurn()            {}

// PracticeRecord is a generated practice problem with its worked solution.
type PracticeRecord struct {
	Problem  string
	Solution string
}

func (PracticeRecord) Speaker() Speaker { return SpeakerAssistant }
func (PracticeRecord) isTurn()          {}

func UserMessage(text string) Message {
	return Message{From: SpeakerUser, Text: text}
}

func AssistantMessage(text string) Message {
	return Message{From: SpeakerAssistant, Text: text}
}

// Outcome is the result of a single model query: raw text on success,
// otherwise a classified failure.
type Outcome struct {
	Text   string
	Failed bool
	Kind   ErrorKind
	Detail string
}

func RawText(text string) Outcome {
	return Outcome{Text: text}
}

func Failure(kind ErrorKind, detail string) Outcome {
	return Outcome{Failed: true, Kind: kind, Detail: detail}
}

func (o Outcome) String() string {
	if o.Failed {
		return fmt.Sprintf("Failure(%s, %s)", o.Kind, o.Detail)
	}
	return fmt.Sprintf("RawText(%d bytes)", len(o.Text))
}
