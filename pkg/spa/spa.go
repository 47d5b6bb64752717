// Package spa serves a built single page application: real files as they
// are, every other path as the index document so client-side routing sees
// the URL it was asked for.
package spa

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const DefaultIndex = "index.html"

type Resolution struct {
	File     string
	Fallback bool
}

type Resolver struct {
	root  string
	index string
}

// New fails when root is not a directory. index defaults to index.html.
func New(root, index string) (*Resolver, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("spa: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spa: %s is not a directory", root)
	}
	if index == "" {
		index = DefaultIndex
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("spa: %w", err)
	}
	return &Resolver{root: abs, index: index}, nil
}

func (r *Resolver) Root() string { return r.root }

// Resolve maps a request path to a regular file under root. A directory
// resolves to its own index document when it has one; anything else resolves
// to the root index.
func (r *Resolver) Resolve(requestPath string) Resolution {
	clean := path.Clean("/" + strings.ReplaceAll(requestPath, `\`, "/"))
	if clean != "/" {
		candidate := filepath.Join(r.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
		if r.within(candidate) {
			if info, err := os.Stat(candidate); err == nil {
				if info.IsDir() {
					candidate = filepath.Join(candidate, r.index)
				}
				if isRegular(candidate) {
					return Resolution{File: candidate}
				}
			}
		}
	}
	return Resolution{File: filepath.Join(r.root, r.index), Fallback: true}
}

func isRegular(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func (r *Resolver) within(p string) bool {
	rel, err := filepath.Rel(r.root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Handler sends the resolved file in place; there is no redirect, so the
// client keeps its URL.
func (r *Resolver) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := r.Resolve(c.Path())
		if res.Fallback {
			c.Set(fiber.HeaderCacheControl, "no-cache")
		}
		return c.SendFile(res.File)
	}
}
