package memory

import (
	"time"

	"winnow-be/pkg/staging"

	"github.com/patrickmn/go-cache"
)

// OutcomeRepository remembers how finished launches ended, keyed by attempt
// id, for retention after the launch.
type OutcomeRepository struct {
	cache *cache.Cache
}

func NewOutcomeRepository(retention time.Duration) *OutcomeRepository {
	if retention <= 0 {
		retention = time.Hour
	}
	// purge expired items at a tenth of the retention, at least once a minute
	cleanup := retention / 10
	if cleanup > time.Minute {
		cleanup = time.Minute
	}
	return &OutcomeRepository{
		cache: cache.New(retention, cleanup),
	}
}

func (r *OutcomeRepository) Save(outcome staging.Progress) {
	r.cache.Set(outcome.AttemptId, outcome, cache.DefaultExpiration)
}

func (r *OutcomeRepository) Get(attemptId string) (staging.Progress, bool) {
	if x, found := r.cache.Get(attemptId); found {
		return x.(staging.Progress), true
	}
	return staging.Progress{}, false
}

// List returns every retained outcome.
func (r *OutcomeRepository) List() []staging.Progress {
	items := r.cache.Items()
	out := make([]staging.Progress, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(staging.Progress))
	}
	return out
}
