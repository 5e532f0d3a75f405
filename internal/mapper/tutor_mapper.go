package mapper

import (
	"encoding/base64"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/dto"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/store"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"

	"github.com/google/uuid"
)

type TutorMapper struct{}

func NewTutorMapper() *TutorMapper {
	return &TutorMapper{}
}

func (m *TutorMapper) TurnToDTO(t tutor.Turn) dto.TurnDTO {
	switch v := t.(type) {
	case tutor.PracticeRecord:
		return dto.TurnDTO{
			Type:     dto.TurnTypePracticeProblem,
			Sender:   string(v.Speaker()),
			Problem:  v.Problem,
			Solution: v.Solution,
		}
	case tutor.Message:
		return dto.TurnDTO{
			Type:   dto.TurnTypeMessage,
			Sender: string(v.From),
			Text:   v.Text,
		}
	default:
		return dto.TurnDTO{}
	}
}

func (m *TutorMapper) TurnsToDTO(turns []tutor.Turn) []dto.TurnDTO {
	out := make([]dto.TurnDTO, 0, len(turns))
	for _, t := range turns {
		out = append(out, m.TurnToDTO(t))
	}
	return out
}

func (m *TutorMapper) FileToDTO(f tutor.EncodedFile) dto.FileDTO {
	return dto.FileDTO{
		DisplayName: f.DisplayName,
		MimeType:    f.MimeType,
		Size:        base64.StdEncoding.DecodedLen(len(f.Payload)) - padding(f.Payload),
	}
}

func (m *TutorMapper) FilesToDTO(files []tutor.EncodedFile) []dto.FileDTO {
	out := make([]dto.FileDTO, 0, len(files))
	for _, f := range files {
		out = append(out, m.FileToDTO(f))
	}
	return out
}

func (m *TutorMapper) SnapshotToDTO(snap store.Snapshot, courseName string) *dto.TutorSessionResponse {
	id, _ := uuid.Parse(snap.ID)
	return &dto.TutorSessionResponse{
		Id:         id,
		CourseName: courseName,
		CreatedAt:  snap.CreatedAt,
		Files:      m.FilesToDTO(snap.Files),
		Turns:      m.TurnsToDTO(snap.Turns),
		InFlight:   snap.InFlight,
		LastError:  snap.LastError,
	}
}

func padding(payload string) int {
	n := 0
	for i := len(payload) - 1; i >= 0 && payload[i] == '='; i-- {
		n++
	}
	return n
}
