// Package launcher generates the shell entry point that forwards texbld
// invocations to the currently active package.
package launcher

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/texbld/texman/pkg/database"
)

// fileMode is the executable permission of the generated launcher.
const fileMode = 0o755

// NightlyArtifactPath returns the path of the bundled zipapp inside a nightly
// package directory.
func NightlyArtifactPath(packageDir string) string {
	return filepath.Join(packageDir, "texbld.pyz")
}

// VenvPath returns the path of the provisioned virtualenv inside a stable
// package directory.
func VenvPath(packageDir string) string {
	return filepath.Join(packageDir, "venv")
}

// StableBinaryPath returns the path of the texbld binary inside a stable
// package's virtualenv.
func StableBinaryPath(packageDir string) string {
	return filepath.Join(VenvPath(packageDir), "bin", "texbld")
}

// Script returns the launcher script for the given package. Nightly builds
// are invoked through the interpreter on the bundled zipapp; stable builds
// through the binary inside their provisioned virtualenv. All arguments are
// forwarded unchanged.
func Script(pkg database.Package, packageDir string) string {
	if pkg.IsNightly() {
		return fmt.Sprintf("#!/bin/sh\nexec python3 '%s' \"$@\"\n", NightlyArtifactPath(packageDir))
	}

	return fmt.Sprintf("#!/bin/sh\nexec '%s' \"$@\"\n", StableBinaryPath(packageDir))
}

// Write regenerates the launcher at the given path. The file is truncated,
// never appended to, and its executable bit is set.
func Write(path, script string) error {
	if err := os.WriteFile(path, []byte(script), fileMode); err != nil {
		return fmt.Errorf("error writing the launcher %q: %w", path, err)
	}

	// WriteFile does not change the mode of an existing file.
	if err := os.Chmod(path, fileMode); err != nil {
		return fmt.Errorf("error setting the launcher %q executable: %w", path, err)
	}

	return nil
}
