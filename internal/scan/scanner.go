package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"repolens/internal/gitinfo"
	"repolens/internal/logging"
	"repolens/internal/types"
)

// Config controls scanning scope.
type Config struct {
	// MaxFiles caps the number of entries recorded.
	MaxFiles int
}

// DefaultConfig returns sane defaults for large repositories.
func DefaultConfig() Config {
	return Config{MaxFiles: 5000}
}

// Scan walks root and returns its deterministic scan result.
func Scan(ctx context.Context, root string, cfg Config) (*types.ScanResult, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultConfig().MaxFiles
	}

	logging.Scan("Starting scan: %s", abs)
	start := time.Now()

	result := &types.ScanResult{Root: abs}
	err = Walk(abs, func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(result.Files) >= cfg.MaxFiles {
			logging.ScanDebug("file cap %d reached", cfg.MaxFiles)
			return fs.SkipAll
		}
		entry := types.FileEntry{Path: rel, IsDir: d.IsDir()}
		if !d.IsDir() {
			if fi, err := d.Info(); err == nil {
				entry.Size = fi.Size()
			}
		}
		result.Files = append(result.Files, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	result.Stack = detectStack(abs, result.Files)
	result.Commands = detectCommands(abs, result.HasFile)
	result.Repo = repoInfo(ctx, abs)

	logging.Scan("Scan complete: %d entries, languages=%v in %v", len(result.Files), result.Stack.Languages, time.Since(start))
	return result, nil
}

func repoInfo(ctx context.Context, root string) types.RepoInfo {
	info := types.RepoInfo{Name: filepath.Base(root)}
	if !gitinfo.IsRepo(ctx, root) {
		return info
	}
	if branch, err := gitinfo.Branch(ctx, root); err == nil {
		info.Branch = branch
	}
	if url, err := gitinfo.OriginURL(ctx, root); err == nil {
		info.URL = gitinfo.WebURL(url)
		if owner, name, ok := gitinfo.ParseRemote(url); ok {
			info.Owner, info.Name = owner, name
		}
	}
	return info
}
