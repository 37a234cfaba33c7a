// Package paths converts between file:// URIs, absolute paths and
// workspace-relative paths.
package paths

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const fileScheme = "file"

// PathToURI converts a filesystem path to a canonical file:// URI.
// Relative paths are made absolute against the working directory.
func PathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	slashed := filepath.ToSlash(abs)
	if runtime.GOOS == "windows" && !strings.HasPrefix(slashed, "/") {
		// C:/x -> /C:/x
		slashed = "/" + slashed
	}
	u := url.URL{Scheme: fileScheme, Path: slashed}
	return u.String()
}

// URIToPath converts a file:// URI to a filesystem path.
func URIToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parsing uri %q: %w", uri, err)
	}
	if u.Scheme != fileScheme {
		return "", fmt.Errorf("unsupported uri scheme %q in %q", u.Scheme, uri)
	}
	p := u.Path
	if runtime.GOOS == "windows" {
		p = strings.TrimPrefix(p, "/")
	}
	return filepath.Clean(filepath.FromSlash(p)), nil
}

// CanonicalURI normalizes a client-supplied URI so that the same file always
// maps to the same key (escaping and path cleaning differ between clients).
func CanonicalURI(uri string) (string, error) {
	p, err := URIToPath(uri)
	if err != nil {
		return "", err
	}
	return PathToURI(p), nil
}

// ResolvePath resolves symlinks in path. When path does not exist yet, its
// deepest existing ancestor is resolved and the rest is appended unchanged.
func ResolvePath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	dir, err := ResolvePath(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(path)), nil
}

// CanonicalizePath converts an absolute path to a repo-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to repo root
// - Returns repo-relative path with forward slashes
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := ResolvePath(absolutePath)
	if err != nil {
		return "", err
	}
	rootResolved, err := ResolvePath(repoRoot)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// JoinRepoPath joins a repo root with a canonical (forward-slash) path
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	normalized := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalized, "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}
