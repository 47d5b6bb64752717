package service

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"winnow-be/internal/entity"
	"winnow-be/internal/pkg/apperror"
	"winnow-be/internal/pkg/logger"
	"winnow-be/pkg/filestore"
)

const (
	metadataModule = "MetadataService"
	placeholder    = ".gitkeep"
)

type IMetadataService interface {
	List(ctx context.Context) ([]string, error)
	Upload(ctx context.Context, files []entity.UploadFile) ([]string, error)
}

type metadataService struct {
	mu     sync.Mutex
	store  *filestore.Store
	logger logger.ILogger
	now    func() time.Time
}

func NewMetadataService(store *filestore.Store, log logger.ILogger) IMetadataService {
	return &metadataService{
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

// List returns stored metadata file names, placeholders excluded.
func (s *metadataService) List(ctx context.Context) ([]string, error) {
	names, err := s.store.ListFiles()
	if err != nil {
		return nil, apperror.IOFailure("metadata.list", err)
	}

	files := make([]string, 0, len(names))
	for _, name := range names {
		if name == placeholder {
			continue
		}
		files = append(files, name)
	}
	return files, nil
}

// Upload stores each file as metadata<epoch-millis><ext>. A name already
// taken moves on to the next millisecond.
func (s *metadataService) Upload(ctx context.Context, files []entity.UploadFile) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := make([]string, 0, len(files))
	for _, f := range files {
		base, err := filestore.BaseName(f.Filename)
		if err != nil {
			return written, apperror.Invalid("metadata.upload", "%v", err)
		}

		name := s.freeName(path.Ext(base))
		if _, err := s.store.WriteOpened(name, f.Open); err != nil {
			return written, apperror.IOFailure("metadata.upload", err)
		}
		s.logger.Debug(metadataModule, "Writing file", map[string]interface{}{"file": name, "original": base})
		written = append(written, name)
	}
	return written, nil
}

func (s *metadataService) freeName(ext string) string {
	millis := s.now().UnixMilli()
	for {
		name := fmt.Sprintf("metadata%d%s", millis, ext)
		if !s.store.FileExists(name) {
			return name
		}
		millis++
	}
}
