package extract

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `{"repo":{"name":"widget","description":"a {curly} \"quoted\" thing","purpose":"demo"},"stack":{"languages":["Go"]}}`

func decoded(t *testing.T) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	return v
}

func TestJSON_RoundTrip(t *testing.T) {
	want := decoded(t)

	tests := []struct {
		name     string
		text     string
		strategy Strategy
	}{
		{"fenced", "Here is the analysis:\n\n```json\n" + doc + "\n```\n\nLet me know!", StrategyFenced},
		{"narrative", "After exploring I found: " + doc + " That's all, I'd say.", StrategyAnchored},
		// A bare document also carries the anchor, so the anchored scan claims it.
		{"raw", "  " + doc + "\n", StrategyAnchored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, strategy, err := JSON(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, strategy)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSON_RawWithoutAnchor(t *testing.T) {
	got, strategy, err := JSON(`{"invalid":true}`)
	require.NoError(t, err)
	assert.Equal(t, StrategyRaw, strategy)
	assert.Equal(t, map[string]any{"invalid": true}, got)
}

func TestJSON_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t\n"} {
		_, strategy, err := JSON(in)
		assert.ErrorIs(t, err, ErrEmptyResponse)
		assert.Equal(t, StrategyNone, strategy)
	}
}

func TestJSON_Unparsable(t *testing.T) {
	_, _, err := JSON("I could not finish the analysis, sorry.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, _, err = JSON(`{"repo": {"name": "x"`)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestJSON_BrokenFenceFallsThrough(t *testing.T) {
	text := "```json\n{not json}\n```\nActually: " + doc
	got, strategy, err := JSON(text)
	require.NoError(t, err)
	assert.Equal(t, StrategyAnchored, strategy)
	if diff := cmp.Diff(decoded(t), got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestJSON_AnchorSkipsUnrelatedObjects(t *testing.T) {
	text := `The tool returned {"totalFiles": 3} and then I wrote ` + doc
	_, strategy, err := JSON(text)
	require.NoError(t, err)
	assert.Equal(t, StrategyAnchored, strategy)
}

func TestFindObjectCandidates(t *testing.T) {
	got := findObjectCandidates(`say "hi" then {"a":"}"} and {"b":{"c":1}} tail {`)
	want := []string{`{"a":"}"}`, `{"b":{"c":1}}`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "fenced", StrategyFenced.String())
	assert.Equal(t, "none", Strategy(42).String())
}
