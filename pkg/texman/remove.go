package texman

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/texbld/texman/pkg/storage/local"
)

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "remove an installed package and its directory",
		ArgsUsage: "<id>",
		Action:    removeAction(),
	}
}

func removeAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "remove").Logger()
		ctx = logger.WithContext(ctx)

		id, err := packageIDArg(cmd)
		if err != nil {
			return err
		}

		db, store, err := openManager(ctx, cmd)
		if err != nil {
			return err
		}

		defer db.Close()

		if err := db.RemovePackage(ctx, id); err != nil {
			return err
		}

		// The row is gone; a failure to remove the directory leaves drift
		// that the doctor command can report, not a dangling record.
		if err := store.RemovePackageDirectory(id); err != nil {
			if !errors.Is(err, local.ErrPackageDirectoryNotFound) {
				return err
			}

			logger.Warn().Int64("id", id).Msg("the package directory was already gone")
		}

		fmt.Fprintf(cmd.Root().Writer, "Removed package %d\n", id)

		return nil
	}
}
