package installer_test

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texbld/texman/pkg/database"
	"github.com/texbld/texman/pkg/installer"
	"github.com/texbld/texman/pkg/launcher"
	"github.com/texbld/texman/testhelper"
)

var errFetchRefused = errors.New("connection refused")

type fakeFetcher struct {
	urls []string
	body string
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (io.ReadCloser, error) {
	f.urls = append(f.urls, url)

	if f.err != nil {
		return nil, f.err
	}

	return io.NopCloser(strings.NewReader(f.body)), nil
}

type fakeProvisioner struct {
	calls         []string
	createEnvErr  error
	installErr    error
	pythonVersion string
}

func (p *fakeProvisioner) CreateEnv(_ context.Context, packageDir string) error {
	p.calls = append(p.calls, "create-env "+packageDir)

	return p.createEnvErr
}

func (p *fakeProvisioner) InstallPackage(_ context.Context, packageDir, name, version string) error {
	p.calls = append(p.calls, "install "+packageDir+" "+name+"=="+version)

	return p.installErr
}

func (p *fakeProvisioner) PythonVersion(_ context.Context) (string, error) {
	if p.pythonVersion == "" {
		return "3.12", nil
	}

	return p.pythonVersion, nil
}

func TestInstallNightly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("fetches the zipapp into the allocated directory", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		fetcher := &fakeFetcher{body: "zipapp-bytes"}

		ins := installer.New(db, store, fetcher, &fakeProvisioner{})

		pkg, err := ins.InstallNightly(ctx)
		require.NoError(t, err)

		assert.True(t, pkg.IsNightly())
		assert.True(t, store.HasPackage(pkg.ID))

		got, err := os.ReadFile(launcher.NightlyArtifactPath(store.PackageDirectory(pkg.ID)))
		require.NoError(t, err)
		assert.Equal(t, "zipapp-bytes", string(got))

		require.Len(t, fetcher.urls, 1)
		assert.Contains(t, fetcher.urls[0], "texbld.pyz")
	})

	t.Run("a failed fetch leaves the reserved record and directory behind", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		fetcher := &fakeFetcher{err: errFetchRefused}

		ins := installer.New(db, store, fetcher, &fakeProvisioner{})

		_, err := ins.InstallNightly(ctx)
		require.ErrorIs(t, err, errFetchRefused)

		pkgs, err := db.Nightlies(ctx)
		require.NoError(t, err)
		require.Len(t, pkgs, 1)
		assert.True(t, store.HasPackage(pkgs[0].ID))
	})
}

func TestInstallStable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unsupported version fails before any allocation", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		prov := &fakeProvisioner{}

		ins := installer.New(db, store, &fakeFetcher{}, prov)

		_, err := ins.InstallStable(ctx, "9.9.9")
		require.ErrorIs(t, err, installer.ErrUnsupportedVersion)

		pkgs, err := db.AllPackages(ctx)
		require.NoError(t, err)
		assert.Empty(t, pkgs)
		assert.Empty(t, prov.calls)
	})

	t.Run("provisions the runtime then installs the package", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		prov := &fakeProvisioner{}

		ins := installer.New(db, store, &fakeFetcher{}, prov)

		pkg, err := ins.InstallStable(ctx, "0.4.0")
		require.NoError(t, err)

		dir := store.PackageDirectory(pkg.ID)
		assert.Equal(t, []string{
			"create-env " + dir,
			"install " + dir + " texbld==0.4.0",
		}, prov.calls)
	})

	t.Run("a subprocess failure propagates and leaves the reservation behind", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		subErr := &installer.SubprocessError{Command: "pip install texbld==0.4.0", ExitCode: 1}
		prov := &fakeProvisioner{installErr: subErr}

		ins := installer.New(db, store, &fakeFetcher{}, prov)

		_, err := ins.InstallStable(ctx, "0.4.0")

		var gotErr *installer.SubprocessError

		require.ErrorAs(t, err, &gotErr)
		assert.Equal(t, 1, gotErr.ExitCode)

		pkgs, err := db.Stables(ctx)
		require.NoError(t, err)
		require.Len(t, pkgs, 1)
		assert.True(t, store.HasPackage(pkgs[0].ID))
	})
}

func TestSetup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("downloads the bootstrap for the running python version", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		fetcher := &fakeFetcher{body: "virtualenv-zipapp"}

		ins := installer.New(db, store, fetcher, &fakeProvisioner{pythonVersion: "3.11"})

		require.NoError(t, ins.Setup(ctx))

		got, err := os.ReadFile(store.VirtualenvBootstrapPath())
		require.NoError(t, err)
		assert.Equal(t, "virtualenv-zipapp", string(got))

		require.Len(t, fetcher.urls, 1)
		assert.Equal(t, "https://bootstrap.pypa.io/virtualenv/3.11/virtualenv.pyz", fetcher.urls[0])
	})

	t.Run("does nothing when the bootstrap is already present", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		require.NoError(t, os.WriteFile(store.VirtualenvBootstrapPath(), []byte("existing"), 0o644))

		fetcher := &fakeFetcher{body: "new"}

		ins := installer.New(db, store, fetcher, &fakeProvisioner{})

		require.NoError(t, ins.Setup(ctx))
		assert.Empty(t, fetcher.urls)

		got, err := os.ReadFile(store.VirtualenvBootstrapPath())
		require.NoError(t, err)
		assert.Equal(t, "existing", string(got))
	})
}

func TestSupportedStableVersions(t *testing.T) {
	t.Parallel()

	assert.True(t, installer.IsSupportedStable("0.4.0"))
	assert.False(t, installer.IsSupportedStable(database.VersionNightly))
	assert.False(t, installer.IsSupportedStable(""))
	assert.NotEmpty(t, installer.SupportedStableVersions())
}
