// Package files implements the sandbox filesystem tools: read, write, edit,
// list, and content search. All paths are validated by Resolver so that no
// handler can reach outside the configured roots, including through
// symlinked parents of files that do not exist yet.
package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver resolves and validates paths against a set of allowed roots.
// Relative paths resolve against the first root.
type Resolver struct {
	Roots []string
}

// NewResolver builds a resolver from a primary root and extra directories,
// dropping empty entries.
func NewResolver(root string, extra ...string) Resolver {
	roots := make([]string, 0, 1+len(extra))
	if strings.TrimSpace(root) != "" {
		roots = append(roots, root)
	}
	for _, dir := range extra {
		if strings.TrimSpace(dir) != "" {
			roots = append(roots, dir)
		}
	}
	return Resolver{Roots: roots}
}

// Resolve returns the canonical absolute path for the input, or an error if
// the path is empty, no roots are configured, or the canonical path falls
// outside every allowed root.
//
// Containment is checked on the symlink-resolved path. For targets that do
// not exist yet, the nearest existing ancestor is resolved instead, so a
// write cannot escape through a symlinked parent directory.
func (r Resolver) Resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required")
	}
	if len(r.Roots) == 0 {
		return "", fmt.Errorf("no sandbox roots configured")
	}

	primary, err := filepath.Abs(r.Roots[0])
	if err != nil {
		return "", fmt.Errorf("resolve sandbox root: %w", err)
	}

	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(primary, clean)
	}

	canon, err := canonicalize(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	for _, root := range r.Roots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rootCanon, err := canonicalize(rootAbs)
		if err != nil {
			rootCanon = rootAbs
		}
		if within(rootCanon, canon) {
			return canon, nil
		}
	}
	return "", fmt.Errorf("path escapes sandbox")
}

// canonicalize resolves symlinks in path. If the tail of the path does not
// exist, the nearest existing ancestor is resolved and the remaining
// components are appended unchanged.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(path)
	if parent == path {
		// Filesystem root does not exist; nothing more to resolve.
		return path, nil
	}
	parentCanon, err := canonicalize(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(parentCanon, filepath.Base(path)), nil
}

// within reports whether target is root or inside it.
func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}
