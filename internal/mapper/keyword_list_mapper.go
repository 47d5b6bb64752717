package mapper

import (
	"sort"
	"strings"

	"winnow-be/internal/dto"
	"winnow-be/internal/entity"
)

type KeywordListMapper struct{}

func NewKeywordListMapper() *KeywordListMapper {
	return &KeywordListMapper{}
}

// FromCreateRequest splits the comma-separated include and exclude strings.
func (m *KeywordListMapper) FromCreateRequest(req *dto.CreateKeywordListRequest) entity.KeywordList {
	return entity.KeywordList{
		Name:      req.Name,
		Version:   string(req.Version),
		DateAdded: req.DateAdded,
		Include:   SplitKeywords(req.Included),
		Exclude:   SplitKeywords(req.Excluded),
	}
}

// ApplyUpdate copies the edit form onto an existing keyword list.
func (m *KeywordListMapper) ApplyUpdate(req *dto.UpdateKeywordListRequest, kwl *entity.KeywordList) {
	kwl.Name = req.Name
	kwl.Version = string(req.Version)
	kwl.DateAdded = req.DateAdded
	kwl.Include = copyKeywords(req.Included)
	kwl.Exclude = copyKeywords(req.Excluded)
}

func (m *KeywordListMapper) ToResponse(id string, kwl entity.KeywordList) *dto.KeywordListResponse {
	return &dto.KeywordListResponse{
		Id:        id,
		Name:      kwl.Name,
		Version:   kwl.Version,
		DateAdded: kwl.DateAdded,
		Include:   copyKeywords(kwl.Include),
		Exclude:   copyKeywords(kwl.Exclude),
	}
}

// ToResponses orders keyword lists by id.
func (m *KeywordListMapper) ToResponses(lists map[string]entity.KeywordList) []*dto.KeywordListResponse {
	ids := make([]string, 0, len(lists))
	for id := range lists {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := make([]*dto.KeywordListResponse, 0, len(ids))
	for _, id := range ids {
		res = append(res, m.ToResponse(id, lists[id]))
	}
	return res
}

// SplitKeywords is a plain split on ','. Only the empty string yields an
// empty list; elements are kept as they are, empty ones included.
func SplitKeywords(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func copyKeywords(in []string) []string {
	return append([]string{}, in...)
}
