package installer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/texbld/texman/pkg/launcher"
)

// EnvProvisioner materializes an isolated runtime inside a package directory
// and installs a package version into it. Both operations are external
// processes; a non-zero exit fails the whole install.
type EnvProvisioner interface {
	// CreateEnv provisions an isolated runtime inside the package directory.
	CreateEnv(ctx context.Context, packageDir string) error

	// InstallPackage installs name==version into the runtime provisioned by
	// CreateEnv.
	InstallPackage(ctx context.Context, packageDir, name, version string) error

	// PythonVersion reports the major.minor version of the interpreter used
	// for provisioning, e.g. "3.12".
	PythonVersion(ctx context.Context) (string, error)
}

// VirtualenvProvisioner provisions per-package virtualenvs through the
// virtualenv zipapp bootstrap and implements EnvProvisioner.
type VirtualenvProvisioner struct {
	python    string
	bootstrap string
}

// NewVirtualenvProvisioner returns a provisioner that invokes the given
// python interpreter on the virtualenv bootstrap zipapp at the given path.
func NewVirtualenvProvisioner(python, bootstrap string) *VirtualenvProvisioner {
	return &VirtualenvProvisioner{python: python, bootstrap: bootstrap}
}

func (p *VirtualenvProvisioner) CreateEnv(ctx context.Context, packageDir string) error {
	return run(ctx, p.python, p.bootstrap, launcher.VenvPath(packageDir))
}

func (p *VirtualenvProvisioner) InstallPackage(ctx context.Context, packageDir, name, version string) error {
	pip := filepath.Join(launcher.VenvPath(packageDir), "bin", "pip")

	return run(ctx, pip, "install", name+"=="+version)
}

func (p *VirtualenvProvisioner) PythonVersion(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, p.python, "-c", `import sys; print("%d.%d" % sys.version_info[:2])`)

	out, err := cmd.Output()
	if err != nil {
		return "", subprocessError(cmd, out, err)
	}

	return strings.TrimSpace(string(out)), nil
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	zerolog.Ctx(ctx).Debug().Str("command", cmd.String()).Msg("running subprocess")

	out, err := cmd.CombinedOutput()
	if err != nil {
		return subprocessError(cmd, out, err)
	}

	return nil
}

func subprocessError(cmd *exec.Cmd, out []byte, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &SubprocessError{
			Command:  cmd.String(),
			ExitCode: exitErr.ExitCode(),
			Output:   string(out),
		}
	}

	return fmt.Errorf("error running %q: %w", cmd.String(), err)
}
