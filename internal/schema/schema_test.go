package schema

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolens/internal/types"
)

const validJSON = `{
  "repo": {"name": "widget", "description": "Widget service", "purpose": "Serves widgets"},
  "stack": {"languages": ["Go"], "frameworks": ["cobra"], "buildSystem": "go", "packageManager": "go modules", "hasDocker": true, "hasCI": false},
  "architecture": {
    "summary": "A CLI over a small core.",
    "components": [{"name": "cli", "path": "cmd/widget", "description": "entry point"}],
    "dataFlow": "flags -> core -> stdout"
  },
  "keyFiles": [{"path": "cmd/widget/main.go", "purpose": "entry point"}],
  "commands": [{"name": "test", "command": "go test ./...", "description": "run tests"}],
  "firstTasks": [{"title": "Add a flag", "description": "Add --json", "difficulty": "beginner", "files": ["cmd/widget/main.go"]}],
  "glossary": [{"term": "widget", "definition": "the thing"}]
}`

func load(t *testing.T, s string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestValidate_Valid(t *testing.T) {
	res := Validate(load(t, validJSON))
	require.True(t, res.Valid(), "errors: %v", res.Errors)
	assert.Empty(t, res.Warnings)

	want := &types.RepoFacts{
		Repo: types.RepoSummary{Name: "widget", Description: "Widget service", Purpose: "Serves widgets"},
		Stack: types.Stack{
			Languages: []string{"Go"}, Frameworks: []string{"cobra"},
			BuildSystem: "go", PackageManager: "go modules", HasDocker: true,
		},
		Architecture: types.Architecture{
			Summary:    "A CLI over a small core.",
			Components: []types.Component{{Name: "cli", Path: "cmd/widget", Description: "entry point"}},
			DataFlow:   "flags -> core -> stdout",
		},
		KeyFiles:   []types.KeyFile{{Path: "cmd/widget/main.go", Purpose: "entry point"}},
		Commands:   []types.Command{{Name: "test", Command: "go test ./...", Description: "run tests"}},
		FirstTasks: []types.FirstTask{{Title: "Add a flag", Description: "Add --json", Difficulty: types.DifficultyBeginner, Files: []string{"cmd/widget/main.go"}}},
		Glossary:   []types.GlossaryTerm{{Term: "widget", Definition: "the thing"}},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Errorf("RepoFacts mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_NotAnObject(t *testing.T) {
	for _, v := range []any{nil, "text", []any{1.0}} {
		res := Validate(v)
		assert.False(t, res.Valid())
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "invalid: $")
	}
}

func TestValidate_InvalidMarker(t *testing.T) {
	res := Validate(map[string]any{"invalid": true})
	assert.False(t, res.Valid())
	assert.Nil(t, res.Data)
	assert.Equal(t,
		"missing: repo, stack, architecture, keyFiles, commands, firstTasks",
		SummarizeMissingFields(res.Errors))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		want   string
	}{
		{
			name:   "missing nested",
			mutate: func(m map[string]any) { delete(m["architecture"].(map[string]any), "summary") },
			want:   "missing: architecture.summary",
		},
		{
			name:   "wrong type",
			mutate: func(m map[string]any) { m["keyFiles"] = "main.go" },
			want:   "invalid: keyFiles (expected array, got string)",
		},
		{
			name:   "empty required array",
			mutate: func(m map[string]any) { m["firstTasks"] = []any{} },
			want:   "invalid: firstTasks (expected at least 1 item(s))",
		},
		{
			name: "bad enum",
			mutate: func(m map[string]any) {
				m["firstTasks"].([]any)[0].(map[string]any)["difficulty"] = "easy"
			},
			want: `enum: firstTasks[0].difficulty must be one of beginner|intermediate|advanced (got "easy")`,
		},
		{
			name:   "blank name",
			mutate: func(m map[string]any) { m["repo"].(map[string]any)["name"] = "  " },
			want:   "invalid: repo.name (must not be empty)",
		},
		{
			name:   "non-string language",
			mutate: func(m map[string]any) { m["stack"].(map[string]any)["languages"] = []any{"Go", 3.0} },
			want:   "invalid: stack.languages[1] (expected string, got number)",
		},
		{
			name:   "component not an object",
			mutate: func(m map[string]any) { m["architecture"].(map[string]any)["components"] = []any{"cli"} },
			want:   "invalid: architecture.components[0] (expected object, got string)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := load(t, validJSON)
			tt.mutate(m)
			res := Validate(m)
			assert.False(t, res.Valid())
			assert.Contains(t, res.Errors, tt.want)
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	m := load(t, validJSON)
	delete(m["stack"].(map[string]any), "hasCI")
	delete(m["architecture"].(map[string]any), "dataFlow")
	m["commands"] = []any{}

	res := Validate(m)
	require.True(t, res.Valid(), "errors: %v", res.Errors)
	assert.ElementsMatch(t, []string{
		"stack.hasCI not provided, assuming false",
		"architecture.dataFlow not provided",
		"commands is empty",
	}, res.Warnings)
}

func TestSummarizeMissingFields(t *testing.T) {
	errs := []string{
		"missing: architecture",
		"invalid: keyFiles (expected array, got string)",
		"missing: firstTasks",
		`enum: firstTasks[0].difficulty must be one of beginner|intermediate|advanced (got "easy")`,
	}
	assert.Equal(t,
		"missing: architecture, firstTasks; invalid: keyFiles; enum: firstTasks[0].difficulty",
		SummarizeMissingFields(errs))
	assert.Equal(t, "", SummarizeMissingFields(nil))
}
