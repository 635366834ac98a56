package types

// RepoInfo identifies the analysed repository.
type RepoInfo struct {
	Owner  string `json:"owner,omitempty"`
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// FullName returns owner/name, or just the name when the owner is unknown.
func (r RepoInfo) FullName() string {
	if r.Owner == "" {
		return r.Name
	}
	return r.Owner + "/" + r.Name
}

// FileEntry is one path from the scan, relative to the root with forward slashes.
type FileEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size"`
}

// ScanResult is the deterministic pre-scan of a repository.
type ScanResult struct {
	Root     string      `json:"root"`
	Repo     RepoInfo    `json:"repo"`
	Files    []FileEntry `json:"files"`
	Stack    Stack       `json:"stack"`
	Commands []Command   `json:"commands"`
}

// HasFile reports whether the scan saw a regular file at path.
func (s *ScanResult) HasFile(path string) bool {
	for _, f := range s.Files {
		if !f.IsDir && f.Path == path {
			return true
		}
	}
	return false
}
