// Package activation implements the current-version state machine: it
// decides which package is current, regenerates the launcher to point at it,
// and derives rollback from the record store's history.
package activation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/texbld/texman/pkg/database"
	"github.com/texbld/texman/pkg/launcher"
	"github.com/texbld/texman/pkg/storage/local"
)

// ErrInvalidPackage is returned if a record exists in the store but its
// directory is missing on disk. This is distinct from database.ErrNotFound:
// the record is there, the filesystem drifted.
var ErrInvalidPackage = errors.New("package directory is missing on disk")

// Engine switches the current package and regenerates the launcher.
type Engine struct {
	db    *database.DB
	store *local.Store
}

func New(db *database.DB, store *local.Store) *Engine {
	return &Engine{db: db, store: store}
}

// Switch activates the package with the given id and regenerates the
// launcher to point at it. The record must exist and its directory must be
// present on disk. If the store update succeeds but the launcher write
// fails, the two are left mismatched until the next successful Switch.
func (e *Engine) Switch(ctx context.Context, id int64) (database.Package, error) {
	pkg, err := e.db.GetPackageByID(ctx, id)
	if err != nil {
		return database.Package{}, err
	}

	if !e.store.HasPackage(pkg.ID) {
		return database.Package{}, fmt.Errorf("%w: id %d", ErrInvalidPackage, pkg.ID)
	}

	pkg, err = e.db.Activate(ctx, pkg.ID)
	if err != nil {
		return database.Package{}, err
	}

	script := launcher.Script(pkg, e.store.PackageDirectory(pkg.ID))
	if err := launcher.Write(e.store.LauncherPath(), script); err != nil {
		return database.Package{}, fmt.Errorf("record %d is active but the launcher was not regenerated: %w", pkg.ID, err)
	}

	zerolog.Ctx(ctx).
		Info().
		Int64("id", pkg.ID).
		Str("version", pkg.Version).
		Msg("switched the current package")

	return pkg, nil
}

// Rollback activates the most recently used non-current package and
// regenerates the launcher, exactly as Switch would.
func (e *Engine) Rollback(ctx context.Context) (database.Package, error) {
	pkg, err := e.db.Rollback(ctx)
	if err != nil {
		return database.Package{}, err
	}

	return e.Switch(ctx, pkg.ID)
}
