package repo

import (
	"repolens/internal/tools"
)

// Tool names as the backend sees them.
const (
	ReadFileName     = "read_file"
	ListFilesName    = "list_files"
	SearchName       = "search"
	RepoMetadataName = "get_repo_metadata"
)

// RegisterAll registers all repository tools bound to tctx.
func RegisterAll(registry *tools.Registry, tctx *tools.Context) error {
	allTools := []*tools.Tool{
		ReadFileTool(tctx),
		ListFilesTool(tctx),
		SearchTool(tctx),
		RepoMetadataTool(tctx),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}

// NewDispatcher builds a registry with every repository tool and wraps it in
// a dispatcher reporting to tctx's observers.
func NewDispatcher(tctx *tools.Context) (*tools.Dispatcher, error) {
	reg := tools.NewRegistry()
	if err := RegisterAll(reg, tctx); err != nil {
		return nil, err
	}
	return tools.NewDispatcher(reg, tctx), nil
}
