package scan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"repolens/internal/types"
)

var extLanguages = map[string]string{
	".go":    "Go",
	".rs":    "Rust",
	".py":    "Python",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".mjs":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".java":  "Java",
	".kt":    "Kotlin",
	".rb":    "Ruby",
	".php":   "PHP",
	".cs":    "C#",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".cc":    "C++",
	".hpp":   "C++",
	".swift": "Swift",
	".ex":    "Elixir",
	".exs":   "Elixir",
	".scala": "Scala",
	".dart":  "Dart",
	".lua":   "Lua",
	".sh":    "Shell",
}

// Languages reported must make up at least this share of source files.
const minLanguageShare = 0.05

// goFrameworks maps go.mod module substrings to framework names.
var goFrameworks = map[string]string{
	"github.com/spf13/cobra":             "cobra",
	"github.com/gin-gonic/gin":           "gin",
	"github.com/labstack/echo":           "echo",
	"github.com/gofiber/fiber":           "fiber",
	"github.com/go-chi/chi":              "chi",
	"github.com/gorilla/mux":             "gorilla/mux",
	"gorm.io/gorm":                       "gorm",
	"github.com/charmbracelet/bubbletea": "bubbletea",
	"google.golang.org/grpc":             "grpc",
	"go.opentelemetry.io/otel":           "opentelemetry",
}

// nodeFrameworks maps package.json dependency names to framework names.
var nodeFrameworks = map[string]string{
	"react":         "React",
	"vue":           "Vue",
	"next":          "Next.js",
	"express":       "Express",
	"fastify":       "Fastify",
	"svelte":        "Svelte",
	"@angular/core": "Angular",
	"@nestjs/core":  "NestJS",
	"prisma":        "Prisma",
	"typeorm":       "TypeORM",
	"vite":          "Vite",
}

// pythonFrameworks maps requirement names to framework names.
var pythonFrameworks = map[string]string{
	"django":  "Django",
	"flask":   "Flask",
	"fastapi": "FastAPI",
	"pytest":  "pytest",
	"numpy":   "NumPy",
	"pandas":  "pandas",
}

func detectStack(root string, files []types.FileEntry) types.Stack {
	var stack types.Stack

	langCounts := make(map[string]int)
	total := 0
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
		if f.IsDir {
			continue
		}
		if strings.HasPrefix(f.Path, ".github/workflows/") || f.Path == ".gitlab-ci.yml" ||
			f.Path == ".circleci/config.yml" || f.Path == "Jenkinsfile" || f.Path == "azure-pipelines.yml" {
			stack.HasCI = true
		}
		base := filepath.Base(f.Path)
		if base == "Dockerfile" || strings.HasPrefix(base, "Dockerfile.") ||
			base == "docker-compose.yml" || base == "docker-compose.yaml" || base == "compose.yaml" {
			stack.HasDocker = true
		}
		if lang, ok := extLanguages[strings.ToLower(filepath.Ext(f.Path))]; ok {
			langCounts[lang]++
			total++
		}
	}

	for lang, n := range langCounts {
		if float64(n)/float64(total) >= minLanguageShare {
			stack.Languages = append(stack.Languages, lang)
		}
	}
	sort.Slice(stack.Languages, func(i, j int) bool {
		ci, cj := langCounts[stack.Languages[i]], langCounts[stack.Languages[j]]
		if ci != cj {
			return ci > cj
		}
		return stack.Languages[i] < stack.Languages[j]
	})

	stack.BuildSystem = detectBuildSystem(present)
	stack.PackageManager = detectPackageManager(present)
	stack.Frameworks = detectFrameworks(root, present)
	return stack
}

func detectBuildSystem(present map[string]bool) string {
	checks := []struct{ file, system string }{
		{"go.mod", "go"},
		{"Cargo.toml", "cargo"},
		{"pom.xml", "maven"},
		{"build.gradle", "gradle"},
		{"build.gradle.kts", "gradle"},
		{"CMakeLists.txt", "cmake"},
		{"pyproject.toml", "pyproject"},
		{"setup.py", "setuptools"},
		{"package.json", "npm-scripts"},
		{"Makefile", "make"},
	}
	for _, c := range checks {
		if present[c.file] {
			return c.system
		}
	}
	return ""
}

func detectPackageManager(present map[string]bool) string {
	checks := []struct{ file, manager string }{
		{"pnpm-lock.yaml", "pnpm"},
		{"yarn.lock", "yarn"},
		{"bun.lockb", "bun"},
		{"package-lock.json", "npm"},
		{"go.mod", "go modules"},
		{"Cargo.toml", "cargo"},
		{"poetry.lock", "poetry"},
		{"uv.lock", "uv"},
		{"Pipfile", "pipenv"},
		{"requirements.txt", "pip"},
		{"Gemfile", "bundler"},
		{"composer.json", "composer"},
		{"pom.xml", "maven"},
		{"package.json", "npm"},
	}
	for _, c := range checks {
		if present[c.file] {
			return c.manager
		}
	}
	return ""
}

func detectFrameworks(root string, present map[string]bool) []string {
	found := make(map[string]bool)

	if present["go.mod"] {
		if data, err := os.ReadFile(filepath.Join(root, "go.mod")); err == nil {
			content := string(data)
			for mod, name := range goFrameworks {
				if strings.Contains(content, mod) {
					found[name] = true
				}
			}
		}
	}

	if present["package.json"] {
		if pkg, err := readPackageJSON(root); err == nil {
			for dep := range pkg.allDeps() {
				if name, ok := nodeFrameworks[dep]; ok {
					found[name] = true
				}
			}
		}
	}

	for _, req := range []string{"requirements.txt", "pyproject.toml"} {
		if !present[req] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, req))
		if err != nil {
			continue
		}
		content := strings.ToLower(string(data))
		for dep, name := range pythonFrameworks {
			if strings.Contains(content, dep) {
				found[name] = true
			}
		}
	}

	frameworks := make([]string, 0, len(found))
	for name := range found {
		frameworks = append(frameworks, name)
	}
	sort.Strings(frameworks)
	return frameworks
}

type packageJSON struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (p *packageJSON) allDeps() map[string]string {
	all := make(map[string]string, len(p.Dependencies)+len(p.DevDependencies))
	for k, v := range p.Dependencies {
		all[k] = v
	}
	for k, v := range p.DevDependencies {
		all[k] = v
	}
	return all
}

func readPackageJSON(root string) (*packageJSON, error) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}
