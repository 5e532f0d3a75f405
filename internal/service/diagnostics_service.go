package service

import (
	"context"
	"strings"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/dto"
	"github.com/erajkarimi-webs/My-AI-Course-Tutors/internal/pkg/logger"
)

const maxDiagnosticsPage = 200

type IDiagnosticsService interface {
	List(ctx context.Context, level string, limit, offset int) ([]dto.DiagnosticsLogDTO, error)
}

type diagnosticsService struct {
	reader logger.IReadableLogger
}

// NewDiagnosticsService reads back the tutor diagnostics log, newest first.
func NewDiagnosticsService(reader logger.IReadableLogger) IDiagnosticsService {
	return &diagnosticsService{reader: reader}
}

func (s *diagnosticsService) List(ctx context.Context, level string, limit, offset int) ([]dto.DiagnosticsLogDTO, error) {
	if limit <= 0 || limit > maxDiagnosticsPage {
		limit = maxDiagnosticsPage
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.reader.GetLogs(strings.ToUpper(level), limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]dto.DiagnosticsLogDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.DiagnosticsLogDTO{
			Id:        e.Id,
			Timestamp: e.Timestamp,
			Level:     e.Level,
			Message:   e.Message,
			Details:   e.Details,
		})
	}
	return out, nil
}
