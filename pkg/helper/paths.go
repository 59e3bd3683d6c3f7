package helper

import (
	"fmt"
	"os"
	"path/filepath"
)

// RootEnvVar overrides the manager root directory when set.
const RootEnvVar = "TEXMAN_ROOT"

// RootDir returns the manager root directory. The TEXMAN_ROOT environment
// variable takes precedence; otherwise the root lives under the per-user data
// directory ($XDG_DATA_HOME or ~/.local/share).
func RootDir() (string, error) {
	if root := os.Getenv(RootEnvVar); root != "" {
		return root, nil
	}

	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "texman"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".local", "share", "texman"), nil
}

// DatabasePath returns the path of the embedded database given the root.
func DatabasePath(root string) string { return filepath.Join(root, "texman.db") }
