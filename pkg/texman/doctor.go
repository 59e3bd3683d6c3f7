package texman

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/texbld/texman/pkg/database"
)

// ErrDriftDetected is returned when doctor finds records and directories that
// disagree about a package's existence.
var ErrDriftDetected = errors.New("drift detected between the record store and the filesystem")

// doctorResults holds the findings of a doctor run.
type doctorResults struct {
	// recordsWithoutDirectory: pkg records whose directory is absent on disk.
	recordsWithoutDirectory []database.Package

	// directoriesWithoutRecord: package directories with no pkg record.
	directoriesWithoutRecord []int64
}

func (r *doctorResults) totalIssues() int {
	return len(r.recordsWithoutDirectory) + len(r.directoriesWithoutRecord)
}

func doctorCommand() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "check consistency between the record store and the package store",
		Description: `Checks for drift between the record store and the filesystem.

Detects:
  - pkg records whose package directory is missing from disk
  - package directories on disk that have no pkg record

Drift is reported, never repaired; resolve it with the remove command.`,
		Action: doctorAction(),
	}
}

func doctorAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "doctor").Logger()
		ctx = logger.WithContext(ctx)

		db, store, err := openManager(ctx, cmd)
		if err != nil {
			return err
		}

		defer db.Close()

		var (
			pkgs   []database.Package
			diskID = make(map[int64]bool)
		)

		g, gCtx := errgroup.WithContext(ctx)

		g.Go(func() error {
			var err error

			pkgs, err = db.AllPackages(gCtx)

			return err
		})

		g.Go(func() error {
			return store.WalkPackages(func(id int64) error {
				diskID[id] = true

				return nil
			})
		})

		if err := g.Wait(); err != nil {
			return err
		}

		var results doctorResults

		recorded := make(map[int64]bool, len(pkgs))

		for _, pkg := range pkgs {
			recorded[pkg.ID] = true

			if !diskID[pkg.ID] {
				results.recordsWithoutDirectory = append(results.recordsWithoutDirectory, pkg)
			}
		}

		for id := range diskID {
			if !recorded[id] {
				results.directoriesWithoutRecord = append(results.directoriesWithoutRecord, id)
			}
		}

		if results.totalIssues() == 0 {
			fmt.Fprintln(cmd.Root().Writer, "No drift detected")

			return nil
		}

		for _, pkg := range results.recordsWithoutDirectory {
			fmt.Fprintf(cmd.Root().Writer, "record %d (%s) has no directory at %s\n",
				pkg.ID, pkg.Version, store.PackageDirectory(pkg.ID))
		}

		for _, id := range results.directoriesWithoutRecord {
			fmt.Fprintf(cmd.Root().Writer, "directory %s has no record\n", store.PackageDirectory(id))
		}

		return fmt.Errorf("%w: %d issue(s)", ErrDriftDetected, results.totalIssues())
	}
}
