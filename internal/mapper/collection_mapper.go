package mapper

import (
	"sort"

	"winnow-be/internal/dto"
	"winnow-be/internal/entity"
)

type CollectionMapper struct{}

func NewCollectionMapper() *CollectionMapper {
	return &CollectionMapper{}
}

func (m *CollectionMapper) FromCreateRequest(req *dto.CreateCollectionRequest) entity.Collection {
	return entity.Collection{
		Id:              req.Id,
		Name:            req.Name,
		CollectionCount: req.CollectionCount,
		ShortenedName:   req.ShortenedName,
		Description:     req.Description,
		Themes:          req.Themes,
		Notes:           req.Notes,
	}
}

func (m *CollectionMapper) ApplyUpdate(req *dto.UpdateCollectionRequest, c *entity.Collection) {
	c.Name = req.Name
	c.ShortenedName = req.ShortenedName
	c.Description = req.Description
	c.Themes = req.Themes
	c.Notes = req.Notes
}

func (m *CollectionMapper) ToResponse(c entity.Collection) *dto.CollectionResponse {
	return &dto.CollectionResponse{
		Id:              c.Id,
		Name:            c.Name,
		CollectionCount: c.CollectionCount,
		ShortenedName:   c.ShortenedName,
		Description:     c.Description,
		Themes:          c.Themes,
		Notes:           c.Notes,
	}
}

func (m *CollectionMapper) ToResponses(collections map[string]entity.Collection) []*dto.CollectionResponse {
	ids := make([]string, 0, len(collections))
	for id := range collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := make([]*dto.CollectionResponse, 0, len(ids))
	for _, id := range ids {
		res = append(res, m.ToResponse(collections[id]))
	}
	return res
}
