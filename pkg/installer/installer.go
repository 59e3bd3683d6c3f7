// Package installer allocates pkg records and directories and delegates the
// fetch and provisioning mechanics to external collaborators. Allocation
// strictly precedes any network or subprocess work so a failure mid-install
// still leaves a diagnosable, nameable artifact.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/texbld/texman/pkg/database"
	"github.com/texbld/texman/pkg/launcher"
	"github.com/texbld/texman/pkg/storage/local"
)

const (
	// nightlyArtifactURL is the prebuilt zipapp published by the nightly
	// release workflow.
	nightlyArtifactURL = "https://github.com/texbld/texbld/releases/download/nightly/texbld.pyz"

	// virtualenvBootstrapURLFormat expects the major.minor python version.
	virtualenvBootstrapURLFormat = "https://bootstrap.pypa.io/virtualenv/%s/virtualenv.pyz"

	// pypiPackage is the package installed into stable runtimes.
	pypiPackage = "texbld"

	artifactMode = 0o644
)

// supportedStableVersions is the recognized set of stable releases.
//
//nolint:gochecknoglobals
var supportedStableVersions = []string{"0.2.0", "0.2.1", "0.3.0", "0.3.1", "0.4.0"}

// SupportedStableVersions returns the recognized stable versions.
func SupportedStableVersions() []string { return slices.Clone(supportedStableVersions) }

// IsSupportedStable returns true if version is a recognized stable release.
func IsSupportedStable(version string) bool {
	return slices.Contains(supportedStableVersions, version)
}

// Installer registers new builds in the record store and populates their
// directories through the fetch and provisioning collaborators.
type Installer struct {
	db          *database.DB
	store       *local.Store
	fetcher     ArtifactFetcher
	provisioner EnvProvisioner
}

func New(db *database.DB, store *local.Store, fetcher ArtifactFetcher, provisioner EnvProvisioner) *Installer {
	return &Installer{db: db, store: store, fetcher: fetcher, provisioner: provisioner}
}

// InstallNightly allocates a record and directory for a nightly build and
// fetches the nightly zipapp into it. If the fetch fails, the reserved record
// and directory are left behind for manual cleanup.
func (i *Installer) InstallNightly(ctx context.Context) (database.Package, error) {
	pkg, dir, err := i.allocate(ctx, database.VersionNightly)
	if err != nil {
		return database.Package{}, err
	}

	if err := i.fetchToFile(ctx, nightlyArtifactURL, launcher.NightlyArtifactPath(dir)); err != nil {
		i.logReserved(ctx, pkg)

		return database.Package{}, err
	}

	return pkg, nil
}

// InstallStable allocates a record and directory for the given stable version
// and provisions an isolated runtime with texbld installed inside it. The
// version must be in the recognized stable set.
func (i *Installer) InstallStable(ctx context.Context, version string) (database.Package, error) {
	if !IsSupportedStable(version) {
		return database.Package{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}

	pkg, dir, err := i.allocate(ctx, version)
	if err != nil {
		return database.Package{}, err
	}

	if err := i.provisioner.CreateEnv(ctx, dir); err != nil {
		i.logReserved(ctx, pkg)

		return database.Package{}, fmt.Errorf("error provisioning the runtime: %w", err)
	}

	if err := i.provisioner.InstallPackage(ctx, dir, pypiPackage, version); err != nil {
		i.logReserved(ctx, pkg)

		return database.Package{}, fmt.Errorf("error installing %s==%s: %w", pypiPackage, version, err)
	}

	return pkg, nil
}

// Setup downloads the virtualenv bootstrap zipapp for the running python
// version into the root, unless it is already present.
func (i *Installer) Setup(ctx context.Context) error {
	bootstrap := i.store.VirtualenvBootstrapPath()

	if _, err := os.Stat(bootstrap); err == nil {
		zerolog.Ctx(ctx).Debug().Str("path", bootstrap).Msg("virtualenv bootstrap already present")

		return nil
	}

	pyVersion, err := i.provisioner.PythonVersion(ctx)
	if err != nil {
		return fmt.Errorf("error determining the python version: %w", err)
	}

	url := fmt.Sprintf(virtualenvBootstrapURLFormat, pyVersion)

	return i.fetchToFile(ctx, url, bootstrap)
}

// allocate creates the record first and the directory second, so the id
// exists before any external operation.
func (i *Installer) allocate(ctx context.Context, version string) (database.Package, string, error) {
	pkg, err := i.db.InsertPackage(ctx, version)
	if err != nil {
		return database.Package{}, "", fmt.Errorf("error allocating a pkg record: %w", err)
	}

	dir, err := i.store.CreatePackageDirectory(pkg.ID)
	if err != nil {
		return database.Package{}, "", err
	}

	zerolog.Ctx(ctx).
		Info().
		Int64("id", pkg.ID).
		Str("version", version).
		Str("dir", dir).
		Msg("allocated package")

	return pkg, dir, nil
}

func (i *Installer) fetchToFile(ctx context.Context, url, path string) error {
	body, err := i.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("error fetching %q: %w", url, err)
	}

	defer body.Close()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, artifactMode)
	if err != nil {
		return fmt.Errorf("error opening %q for writing: %w", path, err)
	}

	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("error writing the artifact to %q: %w", path, err)
	}

	return nil
}

func (i *Installer) logReserved(ctx context.Context, pkg database.Package) {
	zerolog.Ctx(ctx).
		Warn().
		Int64("id", pkg.ID).
		Str("version", pkg.Version).
		Msg("install failed; the reserved record and directory are left behind, remove them with the remove command")
}
