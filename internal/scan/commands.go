package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"repolens/internal/types"
)

var makeTarget = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9_.-]*)\s*:([^=]|$)`)

func detectCommands(root string, present func(string) bool) []types.Command {
	var cmds []types.Command

	if present("package.json") {
		runner := "npm run"
		switch {
		case present("pnpm-lock.yaml"):
			runner = "pnpm"
		case present("yarn.lock"):
			runner = "yarn"
		}
		if pkg, err := readPackageJSON(root); err == nil {
			names := make([]string, 0, len(pkg.Scripts))
			for name := range pkg.Scripts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				cmds = append(cmds, types.Command{
					Name:        name,
					Command:     runner + " " + name,
					Description: pkg.Scripts[name],
				})
			}
		}
	}

	if present("Makefile") {
		for _, target := range makeTargets(filepath.Join(root, "Makefile")) {
			cmds = append(cmds, types.Command{
				Name:        target,
				Command:     "make " + target,
				Description: "Makefile target",
			})
		}
	}

	if present("go.mod") {
		cmds = append(cmds,
			types.Command{Name: "build", Command: "go build ./...", Description: "Build all packages"},
			types.Command{Name: "test", Command: "go test ./...", Description: "Run all tests"},
		)
	}

	if present("Cargo.toml") {
		cmds = append(cmds,
			types.Command{Name: "build", Command: "cargo build", Description: "Build the crate"},
			types.Command{Name: "test", Command: "cargo test", Description: "Run all tests"},
		)
	}

	return cmds
}

func makeTargets(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	seen := make(map[string]bool)
	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "#") {
			continue
		}
		m := makeTarget.FindStringSubmatch(line)
		if m == nil || seen[m[1]] || strings.HasPrefix(m[1], ".") {
			continue
		}
		seen[m[1]] = true
		targets = append(targets, m[1])
	}
	return targets
}
