// Package types holds the data shared between the scanner, the analysis
// agent and the CLI.
package types

// RepoFacts is the validated description of a repository produced by the
// analysis agent.
type RepoFacts struct {
	Repo         RepoSummary    `json:"repo"`
	Stack        Stack          `json:"stack"`
	Architecture Architecture   `json:"architecture"`
	KeyFiles     []KeyFile      `json:"keyFiles"`
	Commands     []Command      `json:"commands"`
	FirstTasks   []FirstTask    `json:"firstTasks"`
	Conventions  []string       `json:"conventions,omitempty"`
	Gotchas      []string       `json:"gotchas,omitempty"`
	Glossary     []GlossaryTerm `json:"glossary,omitempty"`
}

// RepoSummary names the repository and says what it is for.
type RepoSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Purpose     string `json:"purpose"`
}

// Stack is the technology stack, either scanned or model-reported.
type Stack struct {
	Languages      []string `json:"languages"`
	Frameworks     []string `json:"frameworks"`
	BuildSystem    string   `json:"buildSystem"`
	PackageManager string   `json:"packageManager"`
	HasDocker      bool     `json:"hasDocker"`
	HasCI          bool     `json:"hasCI"`
}

// Architecture is the high-level component breakdown.
type Architecture struct {
	Summary    string      `json:"summary"`
	Components []Component `json:"components"`
	DataFlow   string      `json:"dataFlow"`
}

// Component is one architectural component rooted at a path.
type Component struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// KeyFile is a file a newcomer should read early.
type KeyFile struct {
	Path    string `json:"path"`
	Purpose string `json:"purpose"`
}

// Command is a runnable developer command (build, test, lint, ...).
type Command struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
}

// Difficulty grades a suggested first task.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Difficulties lists the accepted difficulty values in order.
var Difficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// FirstTask is a suggested starter contribution.
type FirstTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	Files       []string   `json:"files"`
}

// GlossaryTerm defines a project-specific term.
type GlossaryTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}
