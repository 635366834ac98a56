// Package gitinfo runs small read-only git probes against a working tree.
// Every probe shells out to the git binary; callers treat errors as
// "unavailable" rather than fatal.
package gitinfo

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"repolens/internal/logging"
)

// IsRepo reports whether dir is inside a git work tree.
func IsRepo(ctx context.Context, dir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// Branch returns the current branch name.
func Branch(ctx context.Context, dir string) (string, error) {
	out, err := run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CommitCount returns the number of commits reachable from HEAD.
func CommitCount(ctx context.Context, dir string) (int, error) {
	out, err := run(ctx, dir, "rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", out, err)
	}
	return n, nil
}

// Remote is a configured git remote.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Remotes lists fetch remotes sorted by name.
func Remotes(ctx context.Context, dir string) ([]Remote, error) {
	out, err := run(ctx, dir, "remote", "-v")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var remotes []Remote
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		// origin	git@github.com:acme/widget.git (fetch)
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		remotes = append(remotes, Remote{Name: fields[0], URL: fields[1]})
	}
	sort.Slice(remotes, func(i, j int) bool { return remotes[i].Name < remotes[j].Name })
	return remotes, nil
}

// OriginURL returns the origin remote URL, or the first remote's.
func OriginURL(ctx context.Context, dir string) (string, error) {
	remotes, err := Remotes(ctx, dir)
	if err != nil {
		return "", err
	}
	if len(remotes) == 0 {
		return "", fmt.Errorf("no remotes configured")
	}
	for _, r := range remotes {
		if r.Name == "origin" {
			return r.URL, nil
		}
	}
	return remotes[0].URL, nil
}

// ParseRemote extracts owner and repository name from an https or scp-style
// remote URL. ok is false when the URL has no owner/name path.
func ParseRemote(url string) (owner, name string, ok bool) {
	u := strings.TrimSpace(url)
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, ".git")

	switch {
	case strings.Contains(u, "://"):
		u = u[strings.Index(u, "://")+3:]
		if i := strings.Index(u, "/"); i >= 0 {
			u = u[i+1:]
		} else {
			return "", "", false
		}
	case strings.Contains(u, ":"):
		// git@host:owner/name
		u = u[strings.LastIndex(u, ":")+1:]
	default:
		return "", "", false
	}

	parts := strings.Split(u, "/")
	if len(parts) < 2 || parts[len(parts)-1] == "" || parts[len(parts)-2] == "" {
		return "", "", false
	}
	return parts[len(parts)-2], parts[len(parts)-1], true
}

// WebURL converts a remote URL to an https browse URL when it can.
func WebURL(remote string) string {
	r := strings.TrimSuffix(strings.TrimSpace(remote), ".git")
	if strings.HasPrefix(r, "git@") {
		r = strings.TrimPrefix(r, "git@")
		r = strings.Replace(r, ":", "/", 1)
		return "https://" + r
	}
	return r
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		logging.ScanDebug("git %s failed: %v (%s)", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return string(out), nil
}
