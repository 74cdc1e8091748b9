package addflow

import (
	"fmt"
	"os"
	"path/filepath"
)

// canonicalizeInput resolves path the way the original's add_file does:
// for a symlink, only its *parent* directory is resolved (the symlink
// itself is left intact so the caller can add it as a symlink entry,
// and so a symlink is never silently followed into somewhere outside
// the intended destination tree); for anything else, the full path is
// resolved, following every symlink in it.
func canonicalizeInput(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", fmt.Errorf("addflow: %s not found: %w", path, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		parent := filepath.Dir(path)
		name := filepath.Base(path)
		parentResolved, err := filepath.EvalSymlinks(parent)
		if err != nil {
			return "", fmt.Errorf("addflow: resolving parent directory of %s: %w", path, err)
		}
		return filepath.Join(parentResolved, name), nil
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("addflow: resolving %s: %w", path, err)
	}
	return resolved, nil
}
