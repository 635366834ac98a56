// Package schema validates an extracted JSON value against the RepoFacts
// field contract and converts it into a typed document.
//
// Error strings come in three forms so retry prompts can quote them:
//
//	missing: architecture.summary
//	invalid: keyFiles (expected array)
//	enum: firstTasks[0].difficulty must be one of beginner|intermediate|advanced (got "easy")
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"repolens/internal/types"
)

// FieldContract describes every required field. It is quoted verbatim into
// the final retry prompt.
const FieldContract = `{
  "repo": {
    "name": string (required, non-empty),
    "description": string (required),
    "purpose": string (required)
  },
  "stack": {
    "languages": string[] (required),
    "frameworks": string[] (required),
    "buildSystem": string,
    "packageManager": string,
    "hasDocker": boolean,
    "hasCI": boolean
  },
  "architecture": {
    "summary": string (required, non-empty),
    "components": [ { "name": string (required), "path": string (required), "description": string (required) } ] (at least one),
    "dataFlow": string
  },
  "keyFiles": [ { "path": string (required), "purpose": string (required) } ] (at least one),
  "commands": [ { "name": string (required), "command": string (required), "description": string } ],
  "firstTasks": [ { "title": string (required), "description": string (required), "difficulty": "beginner" | "intermediate" | "advanced" (required), "files": string[] } ] (at least one),
  "conventions": string[] (optional),
  "gotchas": string[] (optional),
  "glossary": [ { "term": string, "definition": string } ] (optional)
}`

// Result is the outcome of validation. Data is set only when Errors is empty.
type Result struct {
	Data     *types.RepoFacts
	Errors   []string
	Warnings []string
}

// Valid reports whether validation succeeded.
func (r Result) Valid() bool {
	return len(r.Errors) == 0 && r.Data != nil
}

// Validate checks v against the RepoFacts contract.
func Validate(v any) Result {
	root, ok := v.(map[string]any)
	if !ok {
		return Result{Errors: []string{invalid("$", "expected object, got "+kind(v))}}
	}

	c := &checker{}
	c.repo(root)
	c.stack(root)
	c.architecture(root)
	c.keyFiles(root)
	c.commands(root)
	c.firstTasks(root)
	c.optionalStrings(root, "conventions")
	c.optionalStrings(root, "gotchas")
	c.glossary(root)

	if len(c.errors) > 0 {
		return Result{Errors: c.errors, Warnings: c.warnings}
	}

	data, err := json.Marshal(root)
	if err != nil {
		return Result{Errors: []string{invalid("$", err.Error())}, Warnings: c.warnings}
	}
	var facts types.RepoFacts
	if err := json.Unmarshal(data, &facts); err != nil {
		return Result{Errors: []string{invalid("$", err.Error())}, Warnings: c.warnings}
	}
	return Result{Data: &facts, Warnings: c.warnings}
}

// SummarizeMissingFields reduces an error list to one line grouped by kind,
// e.g. "missing: architecture, firstTasks; invalid: keyFiles".
func SummarizeMissingFields(errs []string) string {
	groups := map[string][]string{}
	var order []string
	for _, e := range errs {
		kindName, rest, ok := strings.Cut(e, ": ")
		if !ok {
			kindName, rest = "invalid", e
		}
		field := rest
		switch kindName {
		case "invalid":
			field, _, _ = strings.Cut(rest, " (")
		case "enum":
			field, _, _ = strings.Cut(rest, " must be")
		}
		if _, seen := groups[kindName]; !seen {
			order = append(order, kindName)
		}
		groups[kindName] = append(groups[kindName], field)
	}

	parts := make([]string, 0, len(order))
	for _, k := range order {
		parts = append(parts, k+": "+strings.Join(groups[k], ", "))
	}
	return strings.Join(parts, "; ")
}

func missing(path string) string { return "missing: " + path }

func invalid(path, reason string) string { return fmt.Sprintf("invalid: %s (%s)", path, reason) }

func enum(path string, allowed []string, got any) string {
	return fmt.Sprintf("enum: %s must be one of %s (got %q)", path, strings.Join(allowed, "|"), fmt.Sprint(got))
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
