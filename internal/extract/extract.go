// Package extract recovers a JSON document from free-form model output.
//
// Three strategies are tried in order, each against the full text, stopping at
// the first that parses:
//
//  1. a fenced ```json code block
//  2. a balanced-brace object containing the anchor field's literal name
//  3. the whole text
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Anchor is the required top-level field used to pick the right object out
// of narrative text.
const Anchor = "repo"

// Strategy names the extraction path that succeeded.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyFenced
	StrategyAnchored
	StrategyRaw
)

func (s Strategy) String() string {
	switch s {
	case StrategyFenced:
		return "fenced"
	case StrategyAnchored:
		return "anchored"
	case StrategyRaw:
		return "raw"
	default:
		return "none"
	}
}

var (
	// ErrEmptyResponse is returned for empty or whitespace-only input.
	ErrEmptyResponse = errors.New("empty response")
	// ErrNoJSON is returned when no strategy produced valid JSON.
	ErrNoJSON = errors.New("no JSON object found in response")
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)[ \t]*\r?\n(.*?)```")

// JSON extracts the first JSON value the strategies can parse, anchored on
// the "repo" field.
func JSON(text string) (any, Strategy, error) {
	return JSONWithAnchor(text, Anchor)
}

// JSONWithAnchor is JSON with a caller-chosen anchor field.
func JSONWithAnchor(text, anchor string) (any, Strategy, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, StrategyNone, ErrEmptyResponse
	}

	var lastErr error

	for _, m := range fencedBlock.FindAllStringSubmatch(trimmed, -1) {
		v, err := parse(m[1])
		if err == nil {
			return v, StrategyFenced, nil
		}
		lastErr = err
	}

	needle := `"` + anchor + `"`
	for _, candidate := range findObjectCandidates(trimmed) {
		if !strings.Contains(candidate, needle) {
			continue
		}
		v, err := parse(candidate)
		if err == nil {
			return v, StrategyAnchored, nil
		}
		lastErr = err
	}

	v, err := parse(trimmed)
	if err == nil {
		return v, StrategyRaw, nil
	}
	if lastErr == nil {
		lastErr = err
	}
	return nil, StrategyNone, fmt.Errorf("%w: %v", ErrNoJSON, lastErr)
}

func parse(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// findObjectCandidates returns every top-level balanced {...} span in s.
// Quotes are only tracked inside an object so stray quotes in surrounding
// prose cannot desynchronise the scan. Iterating bytes is safe for the ASCII
// delimiters because UTF-8 continuation bytes never collide with them.
func findObjectCandidates(s string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}
