package contract

import (
	"context"
	"encoding/json"

	"winnow-be/internal/entity"
)

// SessionRepository is the Session Document Store. Every mutating method
// persists the whole document before it returns.
type SessionRepository interface {
	Load(ctx context.Context) ([]entity.ReconciliationWarning, error)
	Save(ctx context.Context) error
	Document(ctx context.Context) entity.SessionDocument

	ListCollections(ctx context.Context) map[string]entity.Collection
	GetCollection(ctx context.Context, id string) (entity.Collection, error)
	PutCollection(ctx context.Context, collection entity.Collection) error
	UpdateCollection(ctx context.Context, id string, update func(*entity.Collection)) (entity.Collection, error)
	DeleteCollection(ctx context.Context, id string) error
	UploadCollectionFiles(ctx context.Context, id string, files []entity.UploadFile) ([]string, error)

	ListKeywordLists(ctx context.Context) map[string]entity.KeywordList
	GetKeywordList(ctx context.Context, id string) (entity.KeywordList, error)
	PutKeywordList(ctx context.Context, id string, keywordList entity.KeywordList) error
	UpdateKeywordList(ctx context.Context, id string, update func(*entity.KeywordList)) (entity.KeywordList, error)
	DeleteKeywordList(ctx context.Context, id string) error

	ListRuns(ctx context.Context) map[string]entity.RunReport
	GetRun(ctx context.Context, id string) (entity.RunReport, error)
	DeleteRun(ctx context.Context, id string) error
	UpdateKeywordContexts(ctx context.Context, runId, interviewee string, contexts json.RawMessage) error
	// MaterializeRun returns the stored report for runId, calling load and
	// persisting its result only when the run is not stored yet.
	MaterializeRun(ctx context.Context, runId string, load func(context.Context) (entity.RunReport, error)) (entity.RunReport, error)
}
