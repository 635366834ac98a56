package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRepoInfoFullName(t *testing.T) {
	assert.Equal(t, "acme/widget", RepoInfo{Owner: "acme", Name: "widget"}.FullName())
	assert.Equal(t, "widget", RepoInfo{Name: "widget"}.FullName())
}

func TestAnalysisStatsDuration(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := AnalysisStats{StartedAt: start}
	assert.Zero(t, s.Duration())

	s.EndedAt = start.Add(3 * time.Second)
	assert.Equal(t, 3*time.Second, s.Duration())
}

func TestFailedToolCalls(t *testing.T) {
	s := AnalysisStats{ToolCalls: []ToolCallRecord{
		{Name: "read_file"},
		{Name: "search", Failed: true},
		{Name: "read_file", Failed: true},
	}}
	assert.Equal(t, 2, s.FailedToolCalls())
}

func TestHasFile(t *testing.T) {
	s := ScanResult{Files: []FileEntry{{Path: "src", IsDir: true}, {Path: "go.mod"}}}
	assert.True(t, s.HasFile("go.mod"))
	assert.False(t, s.HasFile("src"))
}
