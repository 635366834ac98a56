package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"repolens/internal/gitinfo"
	"repolens/internal/logging"
	"repolens/internal/scan"
	"repolens/internal/tools"
)

const (
	topExtensions = 20
	unavailable   = "unavailable"
)

// ExtensionCount is one row of the extension histogram.
type ExtensionCount struct {
	Ext   string `json:"ext"`
	Count int    `json:"count"`
}

// GitSummary is the best-effort version-control summary. Branch holds
// "unavailable" when it could not be probed; Unavailable names every probe
// that failed.
type GitSummary struct {
	Branch      string           `json:"branch"`
	CommitCount int              `json:"commitCount,omitempty"`
	Remotes     []gitinfo.Remote `json:"remotes,omitempty"`
	Unavailable []string         `json:"unavailable,omitempty"`
}

// Metadata is the get_repo_metadata payload.
type Metadata struct {
	Name       string           `json:"name"`
	TotalFiles int              `json:"totalFiles"`
	TotalDirs  int              `json:"totalDirs"`
	TotalSize  int64            `json:"totalSize"`
	Extensions []ExtensionCount `json:"extensions"`
	Git        GitSummary       `json:"git"`
}

// RepoMetadataTool returns a tool summarising repository size and git state.
func RepoMetadataTool(tctx *tools.Context) *tools.Tool {
	return &tools.Tool{
		Name:        RepoMetadataName,
		Description: "Get aggregate repository metadata: file and directory counts, total size, the most common file extensions and a git summary.",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			md, err := collectMetadata(ctx, tctx.Root)
			if err != nil {
				return "", err
			}
			data, err := json.MarshalIndent(md, "", "  ")
			if err != nil {
				return "", fmt.Errorf("failed to encode metadata: %w", err)
			}
			return string(data), nil
		},
		Schema: tools.ToolSchema{Properties: map[string]tools.Property{}},
	}
}

func collectMetadata(ctx context.Context, root string) (*Metadata, error) {
	md := &Metadata{
		Name: filepath.Base(root),
		Git:  GitSummary{Branch: unavailable},
	}

	// Git probes run alongside the walk; each degrades on its own.
	var (
		g                            errgroup.Group
		branchOK, countOK, remotesOK bool
	)
	if gitinfo.IsRepo(ctx, root) {
		g.Go(func() error {
			if b, err := gitinfo.Branch(ctx, root); err == nil {
				md.Git.Branch, branchOK = b, true
			}
			return nil
		})
		g.Go(func() error {
			if n, err := gitinfo.CommitCount(ctx, root); err == nil {
				md.Git.CommitCount, countOK = n, true
			}
			return nil
		})
		g.Go(func() error {
			if r, err := gitinfo.Remotes(ctx, root); err == nil {
				md.Git.Remotes, remotesOK = r, true
			}
			return nil
		})
	}

	counts := make(map[string]int)
	walkErr := scan.Walk(root, func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			md.TotalDirs++
			return nil
		}
		md.TotalFiles++
		if info, err := d.Info(); err == nil {
			md.TotalSize += info.Size()
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == "" {
			ext = "(none)"
		}
		counts[ext]++
		return nil
	})

	_ = g.Wait()
	for _, probe := range []struct {
		name string
		ok   bool
	}{{"branch", branchOK}, {"commitCount", countOK}, {"remotes", remotesOK}} {
		if !probe.ok {
			md.Git.Unavailable = append(md.Git.Unavailable, probe.name)
		}
	}
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", walkErr)
	}

	for ext, n := range counts {
		md.Extensions = append(md.Extensions, ExtensionCount{Ext: ext, Count: n})
	}
	sort.Slice(md.Extensions, func(i, j int) bool {
		if md.Extensions[i].Count != md.Extensions[j].Count {
			return md.Extensions[i].Count > md.Extensions[j].Count
		}
		return md.Extensions[i].Ext < md.Extensions[j].Ext
	})
	if len(md.Extensions) > topExtensions {
		md.Extensions = md.Extensions[:topExtensions]
	}

	logging.ToolsDebug("get_repo_metadata: %d files, %d dirs, branch=%s", md.TotalFiles, md.TotalDirs, md.Git.Branch)
	return md, nil
}
