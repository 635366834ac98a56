package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"repolens/internal/backend"
	"repolens/internal/logging"
	"repolens/internal/types"
)

const (
	// FastFileCap is the per-file byte cap for inlined files.
	FastFileCap = 3000
	// FastTotalCap is the byte cap across all inlined files.
	FastTotalCap = 12000
	// TreePreviewLimit is the number of tree entries shown in the fast prompt.
	TreePreviewLimit = 30
)

var (
	readmeNames   = []string{"README.md", "README", "README.rst", "README.txt", "readme.md", "Readme.md"}
	manifestNames = []string{
		"package.json", "go.mod", "Cargo.toml", "pyproject.toml", "requirements.txt",
		"pom.xml", "build.gradle", "Gemfile", "composer.json",
	}
	buildNames      = []string{"Makefile", "Dockerfile", "docker-compose.yml"}
	entryPointNames = []string{
		"main.go", "cmd/main.go", "src/main.rs", "src/lib.rs", "src/index.ts", "src/index.js",
		"index.ts", "index.js", "src/main.ts", "src/main.py", "main.py", "app.py", "manage.py",
		"src/App.tsx", "src/main/java/Main.java",
	}
)

// fastCandidates picks the files inlined into the fast prompt: the first
// README, every manifest and build file present, and the first entry point.
func fastCandidates(scan *types.ScanResult) []string {
	var out []string
	for _, name := range readmeNames {
		if scan.HasFile(name) {
			out = append(out, name)
			break
		}
	}
	for _, group := range [][]string{manifestNames, buildNames} {
		for _, name := range group {
			if scan.HasFile(name) {
				out = append(out, name)
			}
		}
	}
	if entry := firstEntryPoint(scan); entry != "" {
		out = append(out, entry)
	}
	return out
}

func firstEntryPoint(scan *types.ScanResult) string {
	for _, name := range entryPointNames {
		if scan.HasFile(name) {
			return name
		}
	}
	// cmd/<binary>/main.go layouts.
	for _, f := range scan.Files {
		if f.IsDir {
			continue
		}
		if dir, file := path.Split(f.Path); file == "main.go" && strings.HasPrefix(dir, "cmd/") {
			return f.Path
		}
	}
	return ""
}

// readFastFiles reads candidates concurrently, each capped at FastFileCap,
// then applies FastTotalCap in candidate order. Unreadable files are skipped.
func readFastFiles(ctx context.Context, root string, names []string) ([]inlinedFile, error) {
	read := make([]*inlinedFile, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := readCapped(filepath.Join(root, filepath.FromSlash(name)), FastFileCap)
			if err != nil {
				logging.AgentDebug("Fast path skipping %s: %v", name, err)
				return nil
			}
			f.Path = name
			read[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		out   []inlinedFile
		total int
	)
	for _, f := range read {
		if f == nil {
			continue
		}
		remaining := FastTotalCap - total
		if remaining <= 0 {
			break
		}
		if len(f.Content) > remaining {
			f.Content = cutAtRune(f.Content, remaining)
			f.Truncated = true
		}
		total += len(f.Content)
		out = append(out, *f)
	}
	return out, nil
}

func readCapped(p string, limit int) (*inlinedFile, error) {
	fh, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	data, err := io.ReadAll(io.LimitReader(fh, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	f := &inlinedFile{Content: string(data)}
	if len(data) > limit {
		f.Content = cutAtRune(f.Content, limit)
		f.Truncated = true
	}
	return f, nil
}

// treePreview renders the first TreePreviewLimit scan entries.
func treePreview(scan *types.ScanResult) []string {
	n := len(scan.Files)
	if n > TreePreviewLimit {
		n = TreePreviewLimit
	}
	lines := make([]string, 0, n+1)
	for _, f := range scan.Files[:n] {
		if f.IsDir {
			lines = append(lines, f.Path+"/")
		} else {
			lines = append(lines, f.Path)
		}
	}
	if more := len(scan.Files) - n; more > 0 {
		lines = append(lines, fmt.Sprintf("... (%d more)", more))
	}
	return lines
}

// analyzeFast sends one tool-free prompt and validates the answer once.
func (a *Analyzer) analyzeFast(ctx context.Context, req Request, override string, stats *statsCollector) (*types.RepoFacts, error) {
	facts, err := a.runFast(ctx, req, override, stats)
	if err != nil {
		return nil, fmt.Errorf("fast-mode analysis failed: %w", err)
	}
	return facts, nil
}

func (a *Analyzer) runFast(ctx context.Context, req Request, override string, stats *statsCollector) (*types.RepoFacts, error) {
	files, err := readFastFiles(ctx, req.Scan.Root, fastCandidates(req.Scan))
	if err != nil {
		return nil, err
	}
	logging.Agent("Fast path inlining %d file(s)", len(files))

	sess, model, err := openSession(ctx, a.factory, a.candidates(req.Options.Model), backend.SessionConfig{
		SystemPrompt: systemPrompt(false),
		Streaming:    true,
	}, stats)
	if err != nil {
		return nil, err
	}
	defer a.closeSession(sess)

	prompt := buildFastPrompt(promptInput{
		scan:     req.Scan,
		focus:    req.Options.Focus,
		audience: req.Options.Audience,
		deep:     isDeepModel(model),
		override: override,
	}, files, treePreview(req.Scan))

	mux := newMultiplexer(stats, nil, a.verboseWriter(req.Options), a.progress)
	text, err := a.sendAndWait(ctx, sess, mux, prompt, a.timeouts.Fast)
	if err != nil {
		return nil, err
	}

	facts, errs := validateResponse(text)
	if facts == nil {
		return nil, &ValidationFailedError{Attempts: 1, Errors: errs, Preview: preview(text)}
	}
	return facts, nil
}
