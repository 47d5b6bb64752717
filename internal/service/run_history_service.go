package service

import (
	"context"

	"winnow-be/internal/entity"
	"winnow-be/internal/repository/contract"
)

// IRunHistoryService exposes stored run reports.
type IRunHistoryService interface {
	GetAll(ctx context.Context) map[string]entity.RunReport
	Delete(ctx context.Context, id string) error
}

type runHistoryService struct {
	sessionRepo contract.SessionRepository
}

func NewRunHistoryService(sessionRepo contract.SessionRepository) IRunHistoryService {
	return &runHistoryService{sessionRepo: sessionRepo}
}

func (s *runHistoryService) GetAll(ctx context.Context) map[string]entity.RunReport {
	return s.sessionRepo.ListRuns(ctx)
}

func (s *runHistoryService) Delete(ctx context.Context, id string) error {
	return s.sessionRepo.DeleteRun(ctx, id)
}
