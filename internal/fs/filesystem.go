package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// ResolveDir turns a raw user path into an absolute, symlink-free directory path.
func ResolveDir(rawPath string) (string, error) {
	expanded, err := ExpandHome(rawPath)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks: %w", err)
	}
	info, err := os.Stat(realPath)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", realPath)
	}
	return realPath, nil
}

// CanonicalPath makes p absolute and resolves symlinks when the path exists.
// Paths that cannot be resolved are returned cleaned and absolute.
func CanonicalPath(p string) string {
	expanded, err := ExpandHome(p)
	if err != nil {
		expanded = p
	}
	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return filepath.Clean(expanded)
	}
	if realPath, err := filepath.EvalSymlinks(absPath); err == nil {
		return realPath
	}
	return absPath
}

// Within reports whether path equals root or lies inside it.
// Both paths must already be absolute and clean.
func Within(path, root string) bool {
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}

// WithinAny reports whether path lies inside any of roots.
func WithinAny(path string, roots []string) bool {
	for _, r := range roots {
		if Within(path, r) {
			return true
		}
	}
	return false
}
