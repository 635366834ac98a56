package agent

import (
	"fmt"
	"sort"
	"strings"

	"repolens/internal/config"
	"repolens/internal/schema"
	"repolens/internal/tools/repo"
	"repolens/internal/types"
)

// documentShape is the outline shown in the first prompt. Retry2 quotes the
// full schema.FieldContract instead.
const documentShape = `{
  "repo": { "name", "description", "purpose" },
  "stack": { "languages": [], "frameworks": [], "buildSystem", "packageManager", "hasDocker", "hasCI" },
  "architecture": { "summary", "components": [{ "name", "path", "description" }], "dataFlow" },
  "keyFiles": [{ "path", "purpose" }],
  "commands": [{ "name", "command", "description" }],
  "firstTasks": [{ "title", "description", "difficulty": "beginner|intermediate|advanced", "files": [] }],
  "conventions": [], "gotchas": [], "glossary": [{ "term", "definition" }]
}`

const jsonOnlyRule = "Reply with a single JSON object inside a ```json code block and nothing else."

// isDeepModel reports whether model gets the thorough exploration phrasing.
func isDeepModel(model string) bool {
	m := strings.ToLower(model)
	return strings.Contains(m, "opus") || strings.Contains(m, "pro")
}

func systemPrompt(withTools bool) string {
	var b strings.Builder
	b.WriteString("You are a senior engineer preparing an onboarding brief for a codebase. ")
	b.WriteString("You describe what is actually in the repository and never invent files, commands or components.\n\n")
	if withTools {
		fmt.Fprintf(&b, "You can inspect the repository with read-only tools: %s, %s, %s and %s. ",
			repo.RepoMetadataName, repo.ListFilesName, repo.ReadFileName, repo.SearchName)
		b.WriteString("All paths are relative to the repository root. Tool failures are reported back to you; adjust and continue.\n\n")
	}
	b.WriteString("Your final answer is a JSON document. " + jsonOnlyRule)
	return b.String()
}

type promptInput struct {
	scan     *types.ScanResult
	focus    config.Focus
	audience config.Audience
	deep     bool
	override string
}

func focusGuidance(f config.Focus) string {
	switch f {
	case config.FocusArchitecture:
		return "Emphasise architecture: component boundaries, data flow and the key abstractions."
	case config.FocusContributing:
		return "Emphasise contributing: build and test commands, conventions and good first tasks."
	case config.FocusAll:
		return "Cover onboarding, architecture and contribution workflow with equal weight."
	default:
		return "Emphasise onboarding: what the project is, how to run it and where to start reading."
	}
}

func audienceGuidance(a config.Audience) string {
	switch a {
	case config.AudienceOSSContributor:
		return "The reader is an open-source contributor with no access to internal context."
	case config.AudienceInternalDev:
		return "The reader is an experienced developer from another team in the same organisation."
	default:
		return "The reader is a new hire joining the team that owns this repository."
	}
}

func writeScanSummary(b *strings.Builder, scan *types.ScanResult) {
	name := scan.Repo.FullName()
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(b, "Repository: %s\n", name)
	if scan.Repo.URL != "" {
		fmt.Fprintf(b, "URL: %s\n", scan.Repo.URL)
	}
	if scan.Repo.Branch != "" {
		fmt.Fprintf(b, "Branch: %s\n", scan.Repo.Branch)
	}

	files, dirs := 0, 0
	for _, f := range scan.Files {
		if f.IsDir {
			dirs++
		} else {
			files++
		}
	}
	fmt.Fprintf(b, "Pre-scan: %d files in %d directories\n", files, dirs)

	s := scan.Stack
	fmt.Fprintf(b, "Detected languages: %s\n", listOrNone(s.Languages))
	fmt.Fprintf(b, "Detected frameworks: %s\n", listOrNone(s.Frameworks))
	if s.BuildSystem != "" {
		fmt.Fprintf(b, "Build system: %s\n", s.BuildSystem)
	}
	if s.PackageManager != "" {
		fmt.Fprintf(b, "Package manager: %s\n", s.PackageManager)
	}
	fmt.Fprintf(b, "Docker: %v, CI: %v\n", s.HasDocker, s.HasCI)

	if len(scan.Commands) > 0 {
		b.WriteString("Detected commands:\n")
		for _, c := range scan.Commands {
			fmt.Fprintf(b, "- %s: %s\n", c.Name, c.Command)
		}
	}
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

func appendOverride(b *strings.Builder, override string) {
	if override == "" {
		return
	}
	b.WriteString("\n\n## Repository-specific instructions\n\n")
	b.WriteString(override)
}

// buildAnalysisPrompt is the first prompt of a standard, tool-enabled run.
func buildAnalysisPrompt(in promptInput) string {
	var b strings.Builder
	b.WriteString("Analyze this repository and produce an onboarding brief.\n\n")
	writeScanSummary(&b, in.scan)
	b.WriteString("\n")
	b.WriteString(focusGuidance(in.focus) + "\n")
	b.WriteString(audienceGuidance(in.audience) + "\n\n")

	if in.deep {
		b.WriteString("Explore thoroughly before answering. Start with get_repo_metadata, list the top-level layout, ")
		b.WriteString("read the README and manifests, then open the entry points and the central packages. ")
		b.WriteString("Use search to confirm how components connect. Prefer evidence over assumptions.\n\n")
	} else {
		b.WriteString("Explore efficiently: read the README, the manifests and one or two entry points, ")
		b.WriteString("then answer. Do not read more than you need.\n\n")
	}

	b.WriteString("When you are done, answer with a JSON document of this shape:\n\n")
	b.WriteString(documentShape)
	b.WriteString("\n\nkeyFiles, architecture.components and firstTasks need at least one entry. ")
	b.WriteString("Only reference paths you have seen. " + jsonOnlyRule)
	appendOverride(&b, in.override)
	return b.String()
}

// inlinedFile is one file quoted into the fast-path prompt.
type inlinedFile struct {
	Path      string
	Content   string
	Truncated bool
}

// buildFastPrompt is the single prompt of a fast run. Files are inlined
// because no tools are attached.
func buildFastPrompt(in promptInput, files []inlinedFile, tree []string) string {
	var b strings.Builder
	b.WriteString("Produce an onboarding brief for this repository from the material below. ")
	b.WriteString("You cannot inspect anything else.\n\n")
	writeScanSummary(&b, in.scan)
	b.WriteString("\n")
	b.WriteString(focusGuidance(in.focus) + "\n")
	b.WriteString(audienceGuidance(in.audience) + "\n\n")

	b.WriteString("File tree (partial):\n")
	for _, line := range tree {
		b.WriteString(line + "\n")
	}

	for _, f := range files {
		fmt.Fprintf(&b, "\n### %s\n```\n%s\n```\n", f.Path, f.Content)
		if f.Truncated {
			b.WriteString("(truncated)\n")
		}
	}

	b.WriteString("\nAnswer with a JSON document of this shape:\n\n")
	b.WriteString(documentShape)
	b.WriteString("\n\n" + jsonOnlyRule)
	appendOverride(&b, in.override)
	return b.String()
}

func retry1Prompt(summary, override string) string {
	var b strings.Builder
	b.WriteString("Your previous answer could not be accepted")
	if summary != "" {
		fmt.Fprintf(&b, " (%s)", summary)
	}
	b.WriteString(". Fix exactly those fields and send the complete document again.\n\n")
	b.WriteString("Do not explore further and do not add commentary. " + jsonOnlyRule)
	appendOverride(&b, override)
	return b.String()
}

func retry2Prompt(override string) string {
	var b strings.Builder
	b.WriteString("Your answer still does not match the required structure. ")
	b.WriteString("Here is the complete field contract. Every required field must be present with the stated type:\n\n")
	b.WriteString(schema.FieldContract)
	b.WriteString("\n\n" + jsonOnlyRule)
	appendOverride(&b, override)
	return b.String()
}
