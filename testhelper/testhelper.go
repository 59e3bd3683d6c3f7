// Package testhelper provides shared helpers for setting up a throwaway
// manager root for tests.
package testhelper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/texbld/texman/pkg/database"
	"github.com/texbld/texman/pkg/helper"
	"github.com/texbld/texman/pkg/storage/local"
)

// SetupManager creates a temporary manager root with an empty record store
// and returns the opened database and store. Cleanup is registered on t.
func SetupManager(t *testing.T) (*database.DB, *local.Store) {
	t.Helper()

	ctx := context.Background()
	root := t.TempDir()

	store, err := local.New(ctx, root)
	require.NoError(t, err)

	db, err := database.Open(ctx, helper.DatabasePath(root))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db, store
}
