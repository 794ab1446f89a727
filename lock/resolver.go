package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// resolvePath maps a user-supplied path to the canonical form used as the
// lock's identity, so two spellings of the same file name the same lock.
// With followSymlinks the target must exist; without it the path is only
// normalized lexically.
func resolvePath(path string, followSymlinks bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("normalize %q: %w", path, err)
	}
	if !followSymlinks {
		return abs, nil
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("resolve %q: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return resolved, nil
}
