// Package pathutil provides canonical path handling for the virtual
// filesystem namespace.
//
// DriftFS paths form a single-root POSIX-style namespace: absolute,
// slash-separated, no drive letters, no symlinks. Every path that enters the
// system goes through Normalize exactly once; all other layers (metadata
// store, redirector, REST adapter) may assume they only ever see canonical
// paths.
package pathutil

import (
	"errors"
	"fmt"
	"strings"
)

// Root is the canonical root marker of the namespace.
const Root = "/"

// Separator separates path segments.
const Separator = "/"

// ErrInvalidPath is returned for paths that are empty, relative, escape the
// root via "..", or contain an empty segment between separators.
var ErrInvalidPath = errors.New("invalid path")

// Normalize returns the canonical form of path.
//
// Canonicalization collapses "." segments, resolves ".." against the
// preceding segment and strips a single trailing separator (the root marker
// itself is preserved). Normalize is idempotent: applying it to its own
// output returns the same string.
//
// The following inputs fail with ErrInvalidPath:
//   - the empty string
//   - relative paths (no leading separator)
//   - paths whose ".." segments would climb above the root
//   - paths with an empty segment between separators ("/a//b")
func Normalize(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path: %w", ErrInvalidPath)
	}
	if !strings.HasPrefix(p, Separator) {
		return "", fmt.Errorf("path %q is not absolute: %w", p, ErrInvalidPath)
	}

	// A single trailing separator is tolerated ("/a/" means "/a"), anything
	// producing an empty interior segment is ambiguous and rejected.
	trimmed := p
	if len(trimmed) > 1 && strings.HasSuffix(trimmed, Separator) {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if strings.Contains(trimmed, Separator+Separator) {
		return "", fmt.Errorf("path %q contains an empty segment: %w", p, ErrInvalidPath)
	}

	segments := strings.Split(trimmed[1:], Separator)
	resolved := make([]string, 0, len(segments))
	for _, segment := range segments {
		switch segment {
		case "", ".":
			// "" only occurs for the root path itself after trimming.
		case "..":
			if len(resolved) == 0 {
				return "", fmt.Errorf("path %q escapes the root: %w", p, ErrInvalidPath)
			}
			resolved = resolved[:len(resolved)-1]
		default:
			resolved = append(resolved, segment)
		}
	}

	if len(resolved) == 0 {
		return Root, nil
	}
	return Separator + strings.Join(resolved, Separator), nil
}

// Split normalizes path and decomposes it into its parent path and last
// segment. The root splits into (Root, "").
func Split(p string) (parent string, name string, err error) {
	canonical, err := Normalize(p)
	if err != nil {
		return "", "", err
	}
	if canonical == Root {
		return Root, "", nil
	}

	idx := strings.LastIndex(canonical, Separator)
	if idx == 0 {
		return Root, canonical[1:], nil
	}
	return canonical[:idx], canonical[idx+1:], nil
}

// Components normalizes path and returns its segments in order from the root.
// The root maps to an empty slice.
func Components(p string) ([]string, error) {
	canonical, err := Normalize(p)
	if err != nil {
		return nil, err
	}
	if canonical == Root {
		return []string{}, nil
	}
	return strings.Split(canonical[1:], Separator), nil
}

// Join appends name to parent, treating parent as a canonical folder path.
// It performs no validation; both arguments are expected to be canonical
// already (parent via Normalize, name a single segment).
func Join(parent, name string) string {
	if parent == Root {
		return Root + name
	}
	return parent + Separator + name
}

// IsWithin reports whether p equals ancestor or lies underneath it. Both
// arguments must be canonical paths.
func IsWithin(p, ancestor string) bool {
	if ancestor == Root {
		return true
	}
	return p == ancestor || strings.HasPrefix(p, ancestor+Separator)
}
