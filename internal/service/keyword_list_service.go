package service

import (
	"context"

	"winnow-be/internal/dto"
	"winnow-be/internal/entity"
	"winnow-be/internal/mapper"
	"winnow-be/internal/repository/contract"
)

type IKeywordListService interface {
	GetAll(ctx context.Context) []*dto.KeywordListResponse
	Create(ctx context.Context, req *dto.CreateKeywordListRequest) (*dto.KeywordListResponse, error)
	Update(ctx context.Context, req *dto.UpdateKeywordListRequest) (*dto.KeywordListResponse, error)
	Delete(ctx context.Context, id string) error
}

type keywordListService struct {
	sessionRepo contract.SessionRepository
	mapper      *mapper.KeywordListMapper
}

func NewKeywordListService(sessionRepo contract.SessionRepository) IKeywordListService {
	return &keywordListService{
		sessionRepo: sessionRepo,
		mapper:      mapper.NewKeywordListMapper(),
	}
}

func (s *keywordListService) GetAll(ctx context.Context) []*dto.KeywordListResponse {
	return s.mapper.ToResponses(s.sessionRepo.ListKeywordLists(ctx))
}

func (s *keywordListService) Create(ctx context.Context, req *dto.CreateKeywordListRequest) (*dto.KeywordListResponse, error) {
	kwl := s.mapper.FromCreateRequest(req)
	if err := s.sessionRepo.PutKeywordList(ctx, req.Id, kwl); err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(req.Id, kwl), nil
}

func (s *keywordListService) Update(ctx context.Context, req *dto.UpdateKeywordListRequest) (*dto.KeywordListResponse, error) {
	updated, err := s.sessionRepo.UpdateKeywordList(ctx, req.Id, func(kwl *entity.KeywordList) {
		s.mapper.ApplyUpdate(req, kwl)
	})
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(req.Id, updated), nil
}

func (s *keywordListService) Delete(ctx context.Context, id string) error {
	return s.sessionRepo.DeleteKeywordList(ctx, id)
}
