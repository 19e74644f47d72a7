// Package pathutil confines archive paths given on the command line to the
// directories smdsim is allowed to read and write.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoots is returned when a path resolves outside every root.
var ErrOutsideRoots = errors.New("path is outside the archive directories")

// ArchiveRoots returns the directories archive paths may resolve into: the
// archive directory and the working directory.
func ArchiveRoots(archiveDir string) ([]string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return []string{archiveDir, wd}, nil
}

// Confine resolves path and returns the resolved form if it lies under one
// of roots. Symlinks are followed through the deepest ancestor that exists,
// so the file itself and missing parent directories are allowed.
func Confine(path string, roots []string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if strings.ContainsRune(path, 0) {
		return "", errors.New("path contains a NUL byte")
	}

	resolved, err := resolve(path)
	if err != nil {
		return "", err
	}
	for _, root := range roots {
		r, err := resolve(root)
		if err != nil {
			continue
		}
		if within(resolved, r) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrOutsideRoots, Redact(resolved))
}

// resolve makes path absolute and evaluates symlinks on its deepest
// existing ancestor, re-appending the parts that do not exist yet.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot make %s absolute: %w", Redact(path), err)
	}

	var missing []string
	for cur := abs; ; {
		target, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				target = filepath.Join(target, missing[i])
			}
			return target, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("cannot resolve %s: %w", Redact(abs), err)
		}
		missing = append(missing, filepath.Base(cur))
		cur = parent
	}
}

// within reports whether path is root or below it.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Redact shortens path for messages: the home directory becomes "~" and
// anything else keeps only its last two elements.
func Redact(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	if home, err := os.UserHomeDir(); err == nil && home != "" && within(cleaned, home) {
		rel, _ := filepath.Rel(home, cleaned)
		if rel == "." {
			return "~"
		}
		return filepath.Join("~", rel)
	}
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return filepath.Join("...", parent, filepath.Base(cleaned))
}
