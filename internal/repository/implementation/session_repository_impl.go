package implementation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"winnow-be/internal/entity"
	"winnow-be/internal/metrics"
	"winnow-be/internal/pkg/apperror"
	"winnow-be/internal/pkg/logger"
	"winnow-be/internal/repository/contract"
	"winnow-be/pkg/filestore"
)

const sessionModule = "SessionRepository"

// SessionRepositoryImpl keeps the session document in memory and rewrites
// the backing file after every mutation. It assumes it is the only writer of
// that file.
type SessionRepositoryImpl struct {
	mu          sync.Mutex
	dataFile    string
	collections *filestore.Store
	doc         entity.SessionDocument
	logger      logger.ILogger
	metrics     *metrics.Recorder
}

func NewSessionRepository(dataFile string, collections *filestore.Store, log logger.ILogger, rec *metrics.Recorder) contract.SessionRepository {
	return &SessionRepositoryImpl{
		dataFile:    dataFile,
		collections: collections,
		doc:         entity.NewSessionDocument(),
		logger:      log,
		metrics:     rec,
	}
}

// Load replaces the in-memory document with the file's content and reports
// every collection whose directory is missing. The document is never
// rewritten here.
func (r *SessionRepositoryImpl) Load(ctx context.Context) ([]entity.ReconciliationWarning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info(sessionModule, "Initializing data", map[string]interface{}{"data_file": r.dataFile})

	doc := entity.NewSessionDocument()
	raw, err := os.ReadFile(r.dataFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		r.logger.Warn(sessionModule, "Data file not found, starting with an empty document", map[string]interface{}{"data_file": r.dataFile})
	case err != nil:
		return nil, apperror.IOFailure("session.load", err)
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, apperror.IOFailure("session.load", fmt.Errorf("decode %s: %w", r.dataFile, err))
		}
		doc.Normalize()
	}
	r.doc = doc

	warnings := r.reconcile()
	r.metrics.ReconciliationWarnings(len(warnings))
	return warnings, nil
}

func (r *SessionRepositoryImpl) reconcile() []entity.ReconciliationWarning {
	ids := make([]string, 0, len(r.doc.Collections))
	for id := range r.doc.Collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var warnings []entity.ReconciliationWarning
	for _, id := range ids {
		if r.collections.DirExists(id) {
			continue
		}
		w := entity.ReconciliationWarning{
			CollectionId: id,
			ExpectedPath: filepath.Join(r.collections.Root(), id),
			DocumentPath: r.dataFile,
		}
		warnings = append(warnings, w)
		r.logger.Warn(sessionModule, "Collection has no directory; add the files or delete the entry", map[string]interface{}{
			"id":            w.CollectionId,
			"expected_path": w.ExpectedPath,
			"document_path": w.DocumentPath,
		})
	}
	return warnings
}

func (r *SessionRepositoryImpl) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save()
}

func (r *SessionRepositoryImpl) save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	err := enc.Encode(r.doc)
	if err == nil {
		err = filestore.WriteFileAtomic(r.dataFile, buf.Bytes())
	}
	r.metrics.DocumentSaved(err)
	if err != nil {
		r.logger.Error(sessionModule, "Failed to save session document", map[string]interface{}{"error": err, "data_file": r.dataFile})
		return apperror.IOFailure("session.save", err)
	}
	return nil
}

// putEntry sets m[id] and saves. When the save fails the previous entry is
// restored so the in-memory document matches the file again.
func putEntry[V any](r *SessionRepositoryImpl, m map[string]V, id string, v V) error {
	prev, had := m[id]
	m[id] = v
	if err := r.save(); err != nil {
		restoreEntry(m, id, prev, had)
		return err
	}
	return nil
}

func deleteEntry[V any](r *SessionRepositoryImpl, m map[string]V, id string) error {
	prev, had := m[id]
	delete(m, id)
	if err := r.save(); err != nil {
		restoreEntry(m, id, prev, had)
		return err
	}
	return nil
}

func restoreEntry[V any](m map[string]V, id string, prev V, had bool) {
	if had {
		m[id] = prev
	} else {
		delete(m, id)
	}
}

func (r *SessionRepositoryImpl) Document(ctx context.Context) entity.SessionDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Clone()
}

func (r *SessionRepositoryImpl) ListCollections(ctx context.Context) map[string]entity.Collection {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]entity.Collection, len(r.doc.Collections))
	for id, c := range r.doc.Collections {
		out[id] = c
	}
	return out
}

func (r *SessionRepositoryImpl) GetCollection(ctx context.Context, id string) (entity.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.doc.Collections[id]
	if !ok {
		return entity.Collection{}, apperror.NotFound("collection.get", "collection %q", id)
	}
	return c, nil
}

func (r *SessionRepositoryImpl) PutCollection(ctx context.Context, collection entity.Collection) error {
	if _, err := filestore.SanitizeKey(collection.Id); err != nil {
		return apperror.Invalid("collection.add", "%v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info(sessionModule, "Adding collection", map[string]interface{}{"id": collection.Id})
	return putEntry(r, r.doc.Collections, collection.Id, collection)
}

func (r *SessionRepositoryImpl) UpdateCollection(ctx context.Context, id string, update func(*entity.Collection)) (entity.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.doc.Collections[id]
	if !ok {
		return entity.Collection{}, apperror.NotFound("collection.edit", "collection %q", id)
	}

	r.logger.Info(sessionModule, "Editing collection", map[string]interface{}{"id": id})
	update(&c)
	c.Id = id
	if err := putEntry(r, r.doc.Collections, id, c); err != nil {
		return entity.Collection{}, err
	}
	return c, nil
}

// DeleteCollection removes the document entry and the collection directory.
// An id missing from the document fails before anything on disk is touched;
// a missing directory alone is fine. If the save fails the entry stays and
// the next Load reports its missing directory.
func (r *SessionRepositoryImpl) DeleteCollection(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doc.Collections[id]; !ok {
		return apperror.NotFound("collection.delete", "collection %q", id)
	}

	r.logger.Info(sessionModule, "Deleting collection", map[string]interface{}{"id": id})
	if err := r.collections.RemoveAll(id); err != nil {
		return apperror.IOFailure("collection.delete", err)
	}

	return deleteEntry(r, r.doc.Collections, id)
}

// UploadCollectionFiles writes files into the collection directory, creating
// it when needed. Same-named files are replaced. The document is not touched,
// so files may be uploaded before the collection entry is added.
func (r *SessionRepositoryImpl) UploadCollectionFiles(ctx context.Context, id string, files []entity.UploadFile) ([]string, error) {
	if _, err := filestore.SanitizeKey(id); err != nil {
		return nil, apperror.Invalid("collection.upload", "%v", err)
	}
	if _, err := r.collections.EnsureDir(id); err != nil {
		return nil, apperror.IOFailure("collection.upload", err)
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		name, err := filestore.BaseName(f.Filename)
		if err != nil {
			return written, apperror.Invalid("collection.upload", "%v", err)
		}

		key := path.Join(id, name)
		if _, err := r.collections.WriteOpened(key, f.Open); err != nil {
			return written, apperror.IOFailure("collection.upload", err)
		}
		r.logger.Debug(sessionModule, "Writing file", map[string]interface{}{"collection": id, "file": name})
		written = append(written, name)
	}
	return written, nil
}

func (r *SessionRepositoryImpl) ListKeywordLists(ctx context.Context) map[string]entity.KeywordList {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]entity.KeywordList, len(r.doc.KeywordLists))
	for id, kwl := range r.doc.KeywordLists {
		out[id] = kwl.Clone()
	}
	return out
}

func (r *SessionRepositoryImpl) GetKeywordList(ctx context.Context, id string) (entity.KeywordList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kwl, ok := r.doc.KeywordLists[id]
	if !ok {
		return entity.KeywordList{}, apperror.NotFound("keyword_list.get", "keyword list %q", id)
	}
	return kwl.Clone(), nil
}

func (r *SessionRepositoryImpl) PutKeywordList(ctx context.Context, id string, keywordList entity.KeywordList) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info(sessionModule, "Adding keyword list", map[string]interface{}{"id": id})
	return putEntry(r, r.doc.KeywordLists, id, keywordList.Clone())
}

func (r *SessionRepositoryImpl) UpdateKeywordList(ctx context.Context, id string, update func(*entity.KeywordList)) (entity.KeywordList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kwl, ok := r.doc.KeywordLists[id]
	if !ok {
		return entity.KeywordList{}, apperror.NotFound("keyword_list.edit", "keyword list %q", id)
	}

	r.logger.Info(sessionModule, "Editing keyword list", map[string]interface{}{"id": id})
	kwl = kwl.Clone()
	update(&kwl)
	if err := putEntry(r, r.doc.KeywordLists, id, kwl); err != nil {
		return entity.KeywordList{}, err
	}
	return kwl.Clone(), nil
}

func (r *SessionRepositoryImpl) DeleteKeywordList(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doc.KeywordLists[id]; !ok {
		return apperror.NotFound("keyword_list.delete", "keyword list %q", id)
	}

	r.logger.Info(sessionModule, "Deleting keyword list", map[string]interface{}{"id": id})
	return deleteEntry(r, r.doc.KeywordLists, id)
}

func (r *SessionRepositoryImpl) ListRuns(ctx context.Context) map[string]entity.RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]entity.RunReport, len(r.doc.Runs))
	for id, report := range r.doc.Runs {
		out[id] = report.Clone()
	}
	return out
}

func (r *SessionRepositoryImpl) GetRun(ctx context.Context, id string) (entity.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.doc.Runs[id]
	if !ok {
		return nil, apperror.NotFound("run.get", "run %q", id)
	}
	return report.Clone(), nil
}

func (r *SessionRepositoryImpl) DeleteRun(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.doc.Runs[id]; !ok {
		return apperror.NotFound("run.delete", "run %q", id)
	}

	r.logger.Info(sessionModule, "Deleting run", map[string]interface{}{"id": id})
	return deleteEntry(r, r.doc.Runs, id)
}

func (r *SessionRepositoryImpl) UpdateKeywordContexts(ctx context.Context, runId, interviewee string, contexts json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.doc.Runs[runId]
	if !ok {
		return apperror.NotFound("run.keyword_contexts", "run %q", runId)
	}

	updated, err := report.WithKeywordContexts(interviewee, contexts)
	if errors.Is(err, entity.ErrIntervieweeNotFound) {
		return apperror.NotFound("run.keyword_contexts", "individual report %q in run %q", interviewee, runId)
	}
	if err != nil {
		return apperror.Invalid("run.keyword_contexts", "%v", err)
	}

	r.logger.Info(sessionModule, "Updating keyword contexts", map[string]interface{}{"run": runId, "interviewee": interviewee})
	return putEntry(r, r.doc.Runs, runId, updated)
}

// MaterializeRun holds the lock across load so concurrent callers for the
// same run id trigger at most one read.
func (r *SessionRepositoryImpl) MaterializeRun(ctx context.Context, runId string, load func(context.Context) (entity.RunReport, error)) (entity.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if report, ok := r.doc.Runs[runId]; ok {
		return report.Clone(), nil
	}

	report, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if report == nil {
		report = entity.RunReport{}
	}

	r.logger.Info(sessionModule, "Storing run report", map[string]interface{}{"run": runId})
	if err := putEntry(r, r.doc.Runs, runId, report.Clone()); err != nil {
		return nil, err
	}
	return report, nil
}
