package repo

import (
	"context"
	"fmt"
	"os"
	"strings"

	"repolens/internal/logging"
	"repolens/internal/tools"
)

const (
	defaultMaxLines = 500
	// maxReadBytes guards against pulling huge generated files into context.
	maxReadBytes = 2 << 20
)

// ReadFileTool returns a tool for reading file contents.
func ReadFileTool(tctx *tools.Context) *tools.Tool {
	return &tools.Tool{
		Name:        ReadFileName,
		Description: "Read a file from the repository. Returns at most maxLines lines and notes when the file was truncated.",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeReadFile(tctx, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "File path relative to the repository root",
				},
				"maxLines": {
					Type:        "integer",
					Description: "Maximum number of lines to return (default: 500)",
					Default:     defaultMaxLines,
				},
			},
		},
	}
}

func executeReadFile(tctx *tools.Context, args map[string]any) (string, error) {
	path, err := tools.StringArg(args, "path", "")
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	maxLines, err := tools.IntArg(args, "maxLines", defaultMaxLines)
	if err != nil {
		return "", err
	}
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}

	full, err := tctx.Resolve(path)
	if err != nil {
		return "", err
	}

	logging.ToolsDebug("read_file: path=%s maxLines=%d", path, maxLines)

	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory; use list_files", path)
	}
	if info.Size() > maxReadBytes {
		return "", fmt.Errorf("%s is too large to read (%d bytes)", path, info.Size())
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return truncateLines(string(content), maxLines), nil
}

// truncateLines keeps the first max lines and appends a marker with the
// original line count when anything was cut.
func truncateLines(content string, max int) string {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if len(lines) <= max {
		return content
	}
	return strings.Join(lines[:max], "\n") +
		fmt.Sprintf("\n\n[... truncated: showing %d of %d lines]", max, len(lines))
}
