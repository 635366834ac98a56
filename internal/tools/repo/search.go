package repo

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"repolens/internal/logging"
	"repolens/internal/scan"
	"repolens/internal/tools"
)

const (
	defaultMaxSearchResults = 50
	maxMatchLineLen         = 300
)

// lookPath is swapped in tests to force the grep fallback.
var lookPath = exec.LookPath

// SearchTool returns a tool for regex search over file contents.
func SearchTool(tctx *tools.Context) *tools.Tool {
	return &tools.Tool{
		Name:        SearchName,
		Description: "Search file contents with a regular expression. Returns matching lines as path:line:text.",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeSearch(ctx, tctx, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {
					Type:        "string",
					Description: "Regular expression to search for",
				},
				"path": {
					Type:        "string",
					Description: "File or directory relative to the repository root (default: root)",
				},
				"filePattern": {
					Type:        "string",
					Description: "Only search files whose name matches this glob (e.g., '*.go')",
				},
				"maxResults": {
					Type:        "integer",
					Description: "Maximum number of matching lines (default: 50)",
					Default:     defaultMaxSearchResults,
				},
			},
		},
	}
}

func executeSearch(ctx context.Context, tctx *tools.Context, args map[string]any) (string, error) {
	pattern, err := tools.StringArg(args, "pattern", "")
	if err != nil {
		return "", err
	}
	if pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	path, err := tools.StringArg(args, "path", "")
	if err != nil {
		return "", err
	}
	filePattern, err := tools.StringArg(args, "filePattern", "")
	if err != nil {
		return "", err
	}
	maxResults, err := tools.IntArg(args, "maxResults", defaultMaxSearchResults)
	if err != nil {
		return "", err
	}
	if maxResults <= 0 {
		maxResults = defaultMaxSearchResults
	}

	target, err := tctx.Resolve(path)
	if err != nil {
		return "", err
	}

	cmd, err := searchCommand(ctx, pattern, filePattern, target)
	if err != nil {
		return "", err
	}
	cmd.Dir = tctx.Root

	logging.ToolsDebug("search: %s", strings.Join(cmd.Args, " "))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 1 {
		return "No matches found for pattern: " + pattern, nil
	}
	if errors.As(runErr, &exitErr) && ctx.Err() == nil && stdout.Len() > 0 {
		// rg and grep exit 2 when some files could not be read, even with matches.
		logging.ToolsDebug("search: partial results (exit %d): %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		return formatMatches(tctx.Root, stdout.Bytes(), maxResults), nil
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return "", fmt.Errorf("search failed: %s", msg)
	}

	return formatMatches(tctx.Root, stdout.Bytes(), maxResults), nil
}

// searchCommand prefers ripgrep and falls back to grep -rnE.
func searchCommand(ctx context.Context, pattern, filePattern, target string) (*exec.Cmd, error) {
	if rg, err := lookPath("rg"); err == nil {
		args := []string{"--line-number", "--with-filename", "--no-heading", "--color", "never", "--hidden"}
		for _, d := range scan.NoiseDirs {
			args = append(args, "--glob", "!"+d)
		}
		if filePattern != "" {
			args = append(args, "--glob", filePattern)
		}
		args = append(args, "-e", pattern, target)
		return exec.CommandContext(ctx, rg, args...), nil
	}

	grep, err := lookPath("grep")
	if err != nil {
		return nil, fmt.Errorf("search unavailable: neither rg nor grep is installed")
	}
	args := []string{"-rnHE", "-I"}
	for _, d := range scan.NoiseDirs {
		args = append(args, "--exclude-dir="+d)
	}
	if filePattern != "" {
		args = append(args, "--include="+filePattern)
	}
	args = append(args, "-e", pattern, target)
	return exec.CommandContext(ctx, grep, args...), nil
}

// formatMatches relativizes path prefixes and caps the line count.
func formatMatches(root string, out []byte, maxResults int) string {
	prefix := root + string(filepath.Separator)
	var sb strings.Builder
	count, total := 0, 0

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		total++
		if count >= maxResults {
			continue
		}
		line = strings.TrimPrefix(line, prefix)
		sb.WriteString(filepath.ToSlash(tools.Truncate(line, maxMatchLineLen)))
		sb.WriteByte('\n')
		count++
	}

	if count == 0 {
		return "No matches found"
	}
	if total > count {
		sb.WriteString(fmt.Sprintf("\n[... showing %d of %d matches]", count, total))
	}
	return strings.TrimRight(sb.String(), "\n")
}
