package contract

import (
	"context"

	"winnow-be/internal/entity"
)

// RunResultRepository reads the report the tool script leaves behind.
type RunResultRepository interface {
	Read(ctx context.Context) (entity.RunReport, error)
}
