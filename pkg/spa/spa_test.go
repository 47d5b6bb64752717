package spa

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.png"), []byte("PNG"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "app.js"), []byte("js"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "index.html"), []byte("<html>docs</html>"), 0o644))
	return root
}

func TestNewRequiresDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), "")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file, "")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	r, err := New(newSite(t), "")
	require.NoError(t, err)
	index := filepath.Join(r.Root(), "index.html")

	tests := []struct {
		name     string
		path     string
		file     string
		fallback bool
	}{
		{"root", "/", index, true},
		{"client route", "/dashboard/42", index, true},
		{"existing file", "/logo.png", filepath.Join(r.Root(), "logo.png"), false},
		{"nested file", "/assets/app.js", filepath.Join(r.Root(), "assets", "app.js"), false},
		{"directory without index", "/assets", index, true},
		{"directory with index", "/docs", filepath.Join(r.Root(), "docs", "index.html"), false},
		{"directory with index and slash", "/docs/", filepath.Join(r.Root(), "docs", "index.html"), false},
		{"traversal", "/../../etc/passwd", index, true},
		{"encoded backslash traversal", `/..\..\etc\passwd`, index, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.path)
			assert.Equal(t, tt.file, res.File)
			assert.Equal(t, tt.fallback, res.Fallback)
		})
	}
}

func TestHandlerKeepsClientPath(t *testing.T) {
	r, err := New(newSite(t), "")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/*", r.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/dashboard/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(fiber.HeaderLocation))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<html>app</html>", string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/logo.png", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "PNG", string(body))
}

func TestHandlerServesDirectoryIndex(t *testing.T) {
	r, err := New(newSite(t), "")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/*", r.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/docs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<html>docs</html>", string(body))
}
