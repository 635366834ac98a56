package agent

import (
	"strings"

	"repolens/internal/types"
)

// MergeStack combines the model-reported stack with the scanned one.
// Frameworks are the case-insensitive union of both lists, scanned names
// first; every other field takes the scanned value.
func MergeStack(scanned, reported types.Stack) types.Stack {
	merged := scanned
	merged.Languages = append([]string(nil), scanned.Languages...)

	seen := make(map[string]bool, len(scanned.Frameworks)+len(reported.Frameworks))
	merged.Frameworks = make([]string, 0, len(scanned.Frameworks)+len(reported.Frameworks))
	for _, list := range [][]string{scanned.Frameworks, reported.Frameworks} {
		for _, fw := range list {
			key := strings.ToLower(strings.TrimSpace(fw))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged.Frameworks = append(merged.Frameworks, fw)
		}
	}
	return merged
}
