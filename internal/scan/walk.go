// Package scan performs the deterministic pre-scan of a repository: file
// listing, stack detection and developer command discovery.
package scan

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// NoiseDirs are directory names skipped by every walker: VCS metadata,
// build output and dependency caches.
var NoiseDirs = []string{
	".git", "node_modules", "dist", "build", "target", "vendor", "__pycache__",
	".next", ".venv", "venv", "coverage", ".cache", "out", "bin", "obj",
	".idea", ".vscode",
}

var noiseSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(NoiseDirs))
	for _, d := range NoiseDirs {
		m[d] = struct{}{}
	}
	return m
}()

// IsNoiseDir reports whether a directory with this base name is skipped.
func IsNoiseDir(name string) bool {
	_, ok := noiseSet[name]
	return ok
}

// WalkFunc receives each entry with its slash-separated path relative to root.
// Returning fs.SkipAll stops the walk.
type WalkFunc func(rel string, d fs.DirEntry) error

// Walk visits every entry under root in lexical order, skipping noise
// directories and unreadable entries.
func Walk(root string, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if d.IsDir() && IsNoiseDir(d.Name()) {
			return fs.SkipDir
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		return fn(filepath.ToSlash(rel), d)
	})
}

// Depth returns the number of path separators in a relative path.
func Depth(rel string) int {
	return strings.Count(rel, "/")
}
