// Package repo implements the read-only repository inspection tools the
// analysis agent exposes to the backend: read_file, list_files, search and
// get_repo_metadata. Every path is resolved through tools.Context and may not
// leave the repository root.
package repo
