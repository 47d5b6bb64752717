package bootstrap

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"winnow-be/internal/config"
	"winnow-be/internal/pkg/logger"
	"winnow-be/pkg/staging"
	"winnow-be/pkg/toolscript"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingLauncher starts a tool that only ends when its context does.
type blockingLauncher struct {
	started chan struct{}
}

type blockingProcess struct {
	ctx    context.Context
	stdout io.Reader
}

func (p *blockingProcess) Stdout() io.Reader { return p.stdout }

func (p *blockingProcess) Wait() error {
	<-p.ctx.Done()
	return errors.New("signal: killed")
}

func (l *blockingLauncher) Start(ctx context.Context, payload []byte) (toolscript.Process, error) {
	r, w := io.Pipe()
	go func() {
		<-ctx.Done()
		_ = w.Close()
	}()
	close(l.started)
	return &blockingProcess{ctx: ctx, stdout: r}, nil
}

func TestCloseCancelsActiveRun(t *testing.T) {
	cfg := &config.Config{
		App:     config.AppConfig{OutcomeRetention: time.Minute},
		Storage: config.StorageConfig{Root: t.TempDir()},
		Tool:    config.ToolConfig{Timeout: time.Minute},
	}
	launcher := &blockingLauncher{started: make(chan struct{})}

	c, err := NewContainer(cfg, logger.NewNopLogger(), Options{Launcher: launcher})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	c.runService.SetRunName(ctx, "Run", "now")
	done := make(chan staging.Progress, 1)
	go func() {
		p, _ := c.runService.Launch(ctx, nil)
		done <- p
	}()

	select {
	case <-launcher.started:
	case <-time.After(2 * time.Second):
		t.Fatal("tool was not started")
	}

	require.NoError(t, c.Close())

	select {
	case p := <-done:
		assert.Equal(t, staging.StatusCanceled, p.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("run outlived the container")
	}
}

func TestCloseWithoutActiveRun(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Root: t.TempDir()}}
	c, err := NewContainer(cfg, logger.NewNopLogger(), Options{Launcher: &blockingLauncher{started: make(chan struct{})}})
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}

func TestStartReportsReconciliationWarnings(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Root: t.TempDir()}}
	require.NoError(t, cfg.Storage.EnsureLayout())
	doc := `{"keyword-lists": {}, "collections": {"gone": {"id": "gone", "name": "Gone"}}, "runs": {}}`
	require.NoError(t, os.WriteFile(cfg.Storage.DataFile(), []byte(doc), 0o644))

	c, err := NewContainer(cfg, logger.NewNopLogger(), Options{Launcher: &blockingLauncher{started: make(chan struct{})}})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	rec := httptest.NewRecorder()
	c.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "winnow_reconciliation_warnings 1")
}
