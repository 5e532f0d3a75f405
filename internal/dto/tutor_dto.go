package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateTutorSessionResponse struct {
	Id         uuid.UUID `json:"id"`
	CourseName string    `json:"course_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type FileDTO struct {
	DisplayName string `json:"display_name"`
	MimeType    string `json:"mime_type"`
	// Size is the decoded size in bytes.
	Size int `json:"size"`
}

// TurnDTO is either a message or a practice problem, told apart by Type.
type TurnDTO struct {
	Type     string `json:"type"` // "message" | "practice_problem"
	Sender   string `json:"sender"`
	Text     string `json:"text,omitempty"`
	Problem  string `json:"problem,omitempty"`
	Solution string `json:"solution,omitempty"`
}

const (
	TurnTypeMessage         = "message"
	TurnTypePracticeProblem = "practice_problem"
)

type TutorSessionResponse struct {
	Id         uuid.UUID `json:"id"`
	CourseName string    `json:"course_name"`
	CreatedAt  time.Time `json:"created_at"`
	Files      []FileDTO `json:"files"`
	Turns      []TurnDTO `json:"turns"`
	InFlight   bool      `json:"in_flight"`
	LastError  string    `json:"last_error,omitempty"`
}

type UploadFilesResponse struct {
	Added []FileDTO `json:"added"`
	Total int       `json:"total"`
}

type RemoveFileResponse struct {
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

type SendTurnRequest struct {
	Mode string `json:"mode" validate:"required,tutormode"`
	Text string `json:"text" validate:"notblank"`
}

type SendTurnResponse struct {
	Sent      TurnDTO `json:"sent"`
	Reply     TurnDTO `json:"reply"`
	Tier      string  `json:"tier"`
	LastError string  `json:"last_error,omitempty"`
}

type SessionStatusDTO struct {
	InFlight  bool   `json:"in_flight"`
	LastError string `json:"last_error,omitempty"`
}

type HealthDTO struct {
	Status         string `json:"status"`
	CourseName     string `json:"course_name"`
	ActiveSessions int    `json:"active_sessions"`
}

type DiagnosticsLogDTO struct {
	Id        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}
