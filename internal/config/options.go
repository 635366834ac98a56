package config

import (
	"fmt"
	"strings"
)

// Focus selects which part of the onboarding document the analysis emphasises.
type Focus string

const (
	FocusOnboarding   Focus = "onboarding"
	FocusArchitecture Focus = "architecture"
	FocusContributing Focus = "contributing"
	FocusAll          Focus = "all"
)

// Audience describes who the generated document is written for.
type Audience string

const (
	AudienceNewHire        Audience = "new-hire"
	AudienceOSSContributor Audience = "oss-contributor"
	AudienceInternalDev    Audience = "internal-dev"
)

var (
	validFocus    = []Focus{FocusOnboarding, FocusArchitecture, FocusContributing, FocusAll}
	validAudience = []Audience{AudienceNewHire, AudienceOSSContributor, AudienceInternalDev}
)

// ParseFocus parses a focus name, case-insensitively.
func ParseFocus(s string) (Focus, error) {
	f := Focus(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range validFocus {
		if f == v {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid focus %q (valid: %v)", s, validFocus)
}

// ParseAudience parses an audience name, case-insensitively.
func ParseAudience(s string) (Audience, error) {
	a := Audience(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range validAudience {
		if a == v {
			return a, nil
		}
	}
	return "", fmt.Errorf("invalid audience %q (valid: %v)", s, validAudience)
}

// AnalyzeOptions are the per-run options for one analysis.
type AnalyzeOptions struct {
	Fast     bool
	Verbose  bool
	Model    string // prepended to the fallback list when set
	Focus    Focus
	Audience Audience

	// RepoPrompts enables loading .repolens/prompt.md from the repository.
	RepoPrompts bool
	// RepoPromptPath overrides the prompt file location.
	RepoPromptPath string
}

// DefaultAnalyzeOptions returns options seeded from the analysis config.
func (c *Config) DefaultAnalyzeOptions() AnalyzeOptions {
	opts := AnalyzeOptions{
		Focus:       FocusOnboarding,
		Audience:    AudienceNewHire,
		RepoPrompts: true,
	}
	if f, err := ParseFocus(c.Analysis.Focus); err == nil {
		opts.Focus = f
	}
	if a, err := ParseAudience(c.Analysis.Audience); err == nil {
		opts.Audience = a
	}
	return opts
}

// Validate rejects unknown focus and audience values. Empty values are
// filled with defaults.
func (o *AnalyzeOptions) Validate() error {
	if o.Focus == "" {
		o.Focus = FocusOnboarding
	}
	if o.Audience == "" {
		o.Audience = AudienceNewHire
	}
	f, err := ParseFocus(string(o.Focus))
	if err != nil {
		return err
	}
	a, err := ParseAudience(string(o.Audience))
	if err != nil {
		return err
	}
	o.Focus, o.Audience = f, a
	o.Model = strings.TrimSpace(o.Model)
	return nil
}
