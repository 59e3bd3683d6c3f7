package activation_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texbld/texman/pkg/activation"
	"github.com/texbld/texman/pkg/database"
	"github.com/texbld/texman/pkg/storage/local"
	"github.com/texbld/texman/testhelper"
)

func installPackage(t *testing.T, db *database.DB, store *local.Store, version string) database.Package {
	t.Helper()

	pkg, err := db.InsertPackage(context.Background(), version)
	require.NoError(t, err)

	_, err = store.CreatePackageDirectory(pkg.ID)
	require.NoError(t, err)

	return pkg
}

func TestSwitch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		engine := activation.New(db, store)

		_, err := engine.Switch(ctx, 9999)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("a record whose directory is gone is invalid, not missing", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		engine := activation.New(db, store)

		pkg := installPackage(t, db, store, database.VersionNightly)
		require.NoError(t, store.RemovePackageDirectory(pkg.ID))

		_, err := engine.Switch(ctx, pkg.ID)
		assert.ErrorIs(t, err, activation.ErrInvalidPackage)
		assert.NotErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("switch activates and regenerates the launcher", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		engine := activation.New(db, store)

		nightly := installPackage(t, db, store, database.VersionNightly)
		stable := installPackage(t, db, store, "0.4.0")

		got, err := engine.Switch(ctx, nightly.ID)
		require.NoError(t, err)
		assert.True(t, got.Current)

		script, err := os.ReadFile(store.LauncherPath())
		require.NoError(t, err)
		assert.Contains(t, string(script), "texbld.pyz")

		info, err := os.Stat(store.LauncherPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

		t.Run("switching to a stable rewrites the launcher", func(t *testing.T) {
			_, err := engine.Switch(ctx, stable.ID)
			require.NoError(t, err)

			script, err := os.ReadFile(store.LauncherPath())
			require.NoError(t, err)
			assert.Contains(t, string(script), "venv/bin/texbld")
			assert.NotContains(t, string(script), "texbld.pyz")
		})
	})

	t.Run("switch is idempotent", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		engine := activation.New(db, store)

		pkg := installPackage(t, db, store, database.VersionNightly)

		first, err := engine.Switch(ctx, pkg.ID)
		require.NoError(t, err)

		firstScript, err := os.ReadFile(store.LauncherPath())
		require.NoError(t, err)

		second, err := engine.Switch(ctx, pkg.ID)
		require.NoError(t, err)

		secondScript, err := os.ReadFile(store.LauncherPath())
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.True(t, second.Current)
		assert.Equal(t, firstScript, secondScript)
	})
}

func TestRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nothing to rollback before any activation", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		engine := activation.New(db, store)

		installPackage(t, db, store, database.VersionNightly)

		_, err := engine.Rollback(ctx)
		assert.ErrorIs(t, err, database.ErrNothingToRollback)
	})

	t.Run("rollback returns to the previously active package", func(t *testing.T) {
		t.Parallel()

		db, store := testhelper.SetupManager(t)
		engine := activation.New(db, store)

		nightly := installPackage(t, db, store, database.VersionNightly)
		stable := installPackage(t, db, store, "0.4.0")

		_, err := engine.Switch(ctx, nightly.ID)
		require.NoError(t, err)

		_, err = engine.Switch(ctx, stable.ID)
		require.NoError(t, err)

		got, err := engine.Rollback(ctx)
		require.NoError(t, err)
		assert.Equal(t, nightly.ID, got.ID)
		assert.True(t, got.Current)

		script, err := os.ReadFile(store.LauncherPath())
		require.NoError(t, err)
		assert.Contains(t, string(script), "texbld.pyz")
	})
}
