package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Context binds tools to one repository root for one analysis call.
// It is built once per call and handed to every tool constructor.
type Context struct {
	// Root is the absolute, symlink-resolved sandbox root.
	Root    string
	Verbose bool

	// OnInvoke runs before every tool execution.
	OnInvoke func(name string, args map[string]any)
	// OnResult runs after every tool execution, including panicking ones.
	OnResult func(name string, res Result, elapsed time.Duration)
}

// NewContext resolves root and returns a context bound to it.
func NewContext(root string, verbose bool) (*Context, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}
	return &Context{Root: resolved, Verbose: verbose}, nil
}

// Resolve maps a tool-supplied path to an absolute path under Root.
// Relative paths are joined to Root; absolute paths must already lie under it.
// Existing paths are symlink-resolved and re-checked.
func (c *Context) Resolve(p string) (string, error) {
	p = strings.TrimSpace(p)
	var candidate string
	switch {
	case p == "" || p == ".":
		return c.Root, nil
	case filepath.IsAbs(p):
		candidate = filepath.Clean(p)
	default:
		candidate = filepath.Join(c.Root, filepath.FromSlash(p))
	}

	if !c.within(candidate) {
		return "", fmt.Errorf("%w: %s", ErrOutsideSandbox, p)
	}

	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		if !c.within(resolved) {
			return "", fmt.Errorf("%w: %s", ErrOutsideSandbox, p)
		}
		return resolved, nil
	}
	return candidate, nil
}

// Rel returns p relative to Root with forward slashes.
func (c *Context) Rel(p string) string {
	rel, err := filepath.Rel(c.Root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func (c *Context) within(p string) bool {
	rel, err := filepath.Rel(c.Root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
