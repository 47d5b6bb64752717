package service

import (
	"context"

	"winnow-be/internal/dto"
	"winnow-be/internal/pkg/apperror"
	"winnow-be/internal/pkg/logger"
)

type ILogService interface {
	GetLogs(ctx context.Context, page, limit int, level string) ([]*dto.LogListResponse, error)
}

type logService struct {
	logger logger.ILogger
}

func NewLogService(log logger.ILogger) ILogService {
	return &logService{logger: log}
}

// GetLogs pages through the log file, newest first.
func (s *logService) GetLogs(ctx context.Context, page, limit int, level string) ([]*dto.LogListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	entries, err := s.logger.GetLogs(level, limit, (page-1)*limit)
	if err != nil {
		return nil, apperror.IOFailure("logs.list", err)
	}

	res := make([]*dto.LogListResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, &dto.LogListResponse{
			Id:        e.Id,
			Level:     e.Level,
			Module:    e.Module,
			Message:   e.Message,
			Timestamp: e.Timestamp,
			Details:   e.Details,
		})
	}
	return res, nil
}
