package texman_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texbld/texman/pkg/database"
	"github.com/texbld/texman/pkg/helper"
	"github.com/texbld/texman/pkg/texman"
)

// runCommand runs the CLI against a temporary root and returns its stdout.
func runCommand(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()

	c, err := texman.New()
	require.NoError(t, err)

	var out bytes.Buffer

	c.Writer = &out

	argv := append([]string{
		"texman",
		"--log-level", "error",
		"--log-console-writer-enabled=false",
		"--root", root,
	}, args...)

	runErr := c.Run(context.Background(), argv)

	return out.String(), runErr
}

func TestNew(t *testing.T) {
	t.Parallel()

	c, err := texman.New()
	require.NoError(t, err)

	names := make([]string, 0, len(c.Commands))
	for _, sub := range c.Commands {
		names = append(names, sub.Name)
	}

	assert.ElementsMatch(t,
		[]string{"install", "switch", "remove", "list", "rollback", "history", "setup", "doctor"},
		names,
	)
}

func TestListOnEmptyStore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	out, err := runCommand(t, root, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "Nightlies:")
	assert.Contains(t, out, "Stables:")
	assert.Contains(t, out, "(none)")

	t.Run("the root was initialized", func(t *testing.T) {
		assert.FileExists(t, helper.DatabasePath(root))
		assert.DirExists(t, filepath.Join(root, "store"))
		assert.DirExists(t, filepath.Join(root, "bin"))
	})
}

func TestRemoveUnknownID(t *testing.T) {
	t.Parallel()

	_, err := runCommand(t, t.TempDir(), "remove", "9999")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSwitchUnknownID(t *testing.T) {
	t.Parallel()

	_, err := runCommand(t, t.TempDir(), "switch", "9999")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSwitchWithoutArgument(t *testing.T) {
	t.Parallel()

	_, err := runCommand(t, t.TempDir(), "switch")
	assert.ErrorIs(t, err, texman.ErrPackageIDRequired)
}

func TestRollbackOnEmptyStore(t *testing.T) {
	t.Parallel()

	_, err := runCommand(t, t.TempDir(), "rollback")
	assert.ErrorIs(t, err, database.ErrNothingToRollback)
}

func TestHistoryOnEmptyStore(t *testing.T) {
	t.Parallel()

	out, err := runCommand(t, t.TempDir(), "history")
	require.NoError(t, err)

	assert.Contains(t, out, "History:")
	assert.Contains(t, out, "(none)")
}

func TestDoctor(t *testing.T) {
	t.Parallel()

	t.Run("a fresh root has no drift", func(t *testing.T) {
		t.Parallel()

		out, err := runCommand(t, t.TempDir(), "doctor")
		require.NoError(t, err)
		assert.Contains(t, out, "No drift detected")
	})

	t.Run("a stray directory is reported", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "store", "7"), 0o755))

		out, err := runCommand(t, root, "doctor")
		assert.ErrorIs(t, err, texman.ErrDriftDetected)
		assert.Contains(t, out, "has no record")
	})
}
