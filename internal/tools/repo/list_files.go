package repo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"repolens/internal/logging"
	"repolens/internal/scan"
	"repolens/internal/tools"
)

const defaultMaxListResults = 100

// ListFilesTool returns a tool for listing directory contents.
func ListFilesTool(tctx *tools.Context) *tools.Tool {
	return &tools.Tool{
		Name:        ListFilesName,
		Description: "List files and directories. Skips build output, VCS metadata and dependency caches. Directories end with '/'.",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeListFiles(ctx, tctx, args)
		},
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "Directory relative to the repository root (default: root)",
				},
				"pattern": {
					Type:        "string",
					Description: "Glob filter such as '*.go' or 'src/**/*.ts'",
				},
				"recursive": {
					Type:        "boolean",
					Description: "Descend into subdirectories (default: false)",
					Default:     false,
				},
				"maxResults": {
					Type:        "integer",
					Description: "Maximum number of entries (default: 100)",
					Default:     defaultMaxListResults,
				},
			},
		},
	}
}

func executeListFiles(ctx context.Context, tctx *tools.Context, args map[string]any) (string, error) {
	path, err := tools.StringArg(args, "path", "")
	if err != nil {
		return "", err
	}
	pattern, err := tools.StringArg(args, "pattern", "")
	if err != nil {
		return "", err
	}
	recursive, err := tools.BoolArg(args, "recursive", false)
	if err != nil {
		return "", err
	}
	maxResults, err := tools.IntArg(args, "maxResults", defaultMaxListResults)
	if err != nil {
		return "", err
	}
	if maxResults <= 0 {
		maxResults = defaultMaxListResults
	}

	var re *regexp.Regexp
	if pattern != "" {
		re, err = globToRegexp(pattern)
		if err != nil {
			return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}

	dir, err := tctx.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", path)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", path)
	}

	logging.ToolsDebug("list_files: path=%s pattern=%s recursive=%v", path, pattern, recursive)

	var entries []string
	truncated := false
	err = scan.Walk(dir, func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !recursive && scan.Depth(rel) > 0 {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if re != nil && !re.MatchString(rel) && !re.MatchString(d.Name()) {
			return nil
		}
		if len(entries) >= maxResults {
			truncated = true
			return fs.SkipAll
		}
		name := tctx.Rel(filepath.Join(dir, filepath.FromSlash(rel)))
		if d.IsDir() {
			name += "/"
		}
		entries = append(entries, name)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", path, err)
	}

	if len(entries) == 0 {
		if pattern != "" {
			return "No files found matching pattern: " + pattern, nil
		}
		return "Directory is empty (after skipping ignored directories)", nil
	}

	sort.Strings(entries)
	out := strings.Join(entries, "\n")
	if truncated {
		out += fmt.Sprintf("\n\n[... results truncated at %d entries]", maxResults)
	}
	return out, nil
}

// globToRegexp translates a simple glob: ** matches across directories,
// * within one path segment, ? one non-separator character.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch {
		case c == '*' && i+1 < len(glob) && glob[i+1] == '*':
			sb.WriteString(".*")
			i++
			// "**/" also matches zero directories
			if i+1 < len(glob) && glob[i+1] == '/' {
				sb.WriteString("/?")
				i++
			}
		case c == '*':
			sb.WriteString("[^/]*")
		case c == '?':
			sb.WriteString("[^/]")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
