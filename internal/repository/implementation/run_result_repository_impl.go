package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"winnow-be/internal/entity"
	"winnow-be/internal/pkg/apperror"
	"winnow-be/internal/repository/contract"
)

// RunResultRepositoryImpl reads the result file the tool script writes at a
// fixed location once it finishes.
type RunResultRepositoryImpl struct {
	runFile string
}

func NewRunResultRepository(runFile string) contract.RunResultRepository {
	return &RunResultRepositoryImpl{runFile: runFile}
}

func (r *RunResultRepositoryImpl) Read(ctx context.Context) (entity.RunReport, error) {
	raw, err := os.ReadFile(r.runFile)
	if err != nil {
		return nil, apperror.IOFailure("run_result.read", err)
	}

	var report entity.RunReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, apperror.IOFailure("run_result.read", fmt.Errorf("decode %s: %w", r.runFile, err))
	}
	return report, nil
}
