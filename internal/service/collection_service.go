package service

import (
	"context"

	"winnow-be/internal/dto"
	"winnow-be/internal/entity"
	"winnow-be/internal/mapper"
	"winnow-be/internal/repository/contract"
)

type ICollectionService interface {
	GetAll(ctx context.Context) []*dto.CollectionResponse
	Create(ctx context.Context, req *dto.CreateCollectionRequest) (*dto.CollectionResponse, error)
	Update(ctx context.Context, req *dto.UpdateCollectionRequest) (*dto.CollectionResponse, error)
	Delete(ctx context.Context, id string) error
	UploadFiles(ctx context.Context, id string, files []entity.UploadFile) (*dto.UploadFilesResponse, error)
}

type collectionService struct {
	sessionRepo contract.SessionRepository
	mapper      *mapper.CollectionMapper
}

func NewCollectionService(sessionRepo contract.SessionRepository) ICollectionService {
	return &collectionService{
		sessionRepo: sessionRepo,
		mapper:      mapper.NewCollectionMapper(),
	}
}

func (s *collectionService) GetAll(ctx context.Context) []*dto.CollectionResponse {
	return s.mapper.ToResponses(s.sessionRepo.ListCollections(ctx))
}

func (s *collectionService) Create(ctx context.Context, req *dto.CreateCollectionRequest) (*dto.CollectionResponse, error) {
	collection := s.mapper.FromCreateRequest(req)
	if err := s.sessionRepo.PutCollection(ctx, collection); err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(collection), nil
}

func (s *collectionService) Update(ctx context.Context, req *dto.UpdateCollectionRequest) (*dto.CollectionResponse, error) {
	updated, err := s.sessionRepo.UpdateCollection(ctx, req.Id, func(c *entity.Collection) {
		s.mapper.ApplyUpdate(req, c)
	})
	if err != nil {
		return nil, err
	}
	return s.mapper.ToResponse(updated), nil
}

func (s *collectionService) Delete(ctx context.Context, id string) error {
	return s.sessionRepo.DeleteCollection(ctx, id)
}

func (s *collectionService) UploadFiles(ctx context.Context, id string, files []entity.UploadFile) (*dto.UploadFilesResponse, error) {
	written, err := s.sessionRepo.UploadCollectionFiles(ctx, id, files)
	if err != nil {
		return nil, err
	}
	return &dto.UploadFilesResponse{Id: id, Files: written}, nil
}
