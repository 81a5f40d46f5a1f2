// Package pathutil validates user-supplied artifact paths.
//
// The store file, key file and database file are configurable, and relative
// values are resolved under the data directory. This package guarantees the
// resolved paths actually stay there, so a config value like
// "../../etc/cron.d/x" can never place a vault artifact outside the
// directory the user pointed at.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveSafePath resolves userPath relative to baseDir and verifies the
// result stays within baseDir after symlink resolution.
//
// Checks applied, in order:
//   - empty or whitespace-only paths are rejected
//   - paths containing null bytes are rejected
//   - symlinks are resolved to their real filesystem locations
//   - the resolved path must sit inside baseDir
//
// A relative userPath is joined with baseDir; an absolute one is validated
// as given. The target file does not have to exist yet: for a store or key
// file that will be created on first save, the nearest existing parent
// directory is resolved instead.
//
// Example:
//
//	storePath, err := ResolveSafePath(cfg.DataDir, "vault/tasks.json")
//	if err != nil {
//	    // the configured store path escapes the data directory
//	}
func ResolveSafePath(baseDir, userPath string) (string, error) {
	trimmed := strings.TrimSpace(userPath)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty or whitespace-only")
	}

	if strings.Contains(userPath, "\x00") {
		return "", fmt.Errorf("path contains null byte")
	}

	candidate := userPath
	if !filepath.IsAbs(userPath) {
		candidate = filepath.Join(baseDir, userPath)
	}
	candidate = filepath.Clean(candidate)

	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if os.IsNotExist(err) {
			// Not created yet (first run): resolve the parent instead and
			// rejoin with the base name.
			parent := filepath.Dir(candidate)
			base := filepath.Base(candidate)

			resolvedParent, err := filepath.EvalSymlinks(parent)
			if err != nil {
				// The parent may be missing too, e.g. a backups/ dir that
				// the first snapshot will create. Walk up to whatever
				// exists.
				resolvedParent, err = resolveExistingParent(parent)
				if err != nil {
					return "", fmt.Errorf("failed to resolve parent directory: %w", err)
				}
			}

			resolved = filepath.Join(resolvedParent, base)
		} else {
			return "", fmt.Errorf("failed to resolve symlinks: %w", err)
		}
	}

	baseResolved, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	// Containment check: a relative path starting with ".." escapes baseDir.
	rel, err := filepath.Rel(baseResolved, resolved)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}

	if strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("path escapes base directory: %s", userPath)
	}

	return resolved, nil
}

// resolveExistingParent walks up from path until it reaches a directory
// that exists, resolves that directory's symlinks and reattaches the
// not-yet-created segments below it.
func resolveExistingParent(path string) (string, error) {
	current := filepath.Clean(path)
	var pending []string

	for {
		if _, err := os.Stat(current); err == nil {
			resolved, err := filepath.EvalSymlinks(current)
			if err != nil {
				return "", fmt.Errorf("failed to resolve existing parent: %w", err)
			}

			for i := len(pending) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, pending[i])
			}

			return resolved, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing parent directory found")
		}

		pending = append(pending, filepath.Base(current))
		current = parent
	}
}
