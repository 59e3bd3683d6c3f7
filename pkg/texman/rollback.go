package texman

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/texbld/texman/pkg/activation"
)

func rollbackCommand() *cli.Command {
	return &cli.Command{
		Name:   "rollback",
		Usage:  "switch back to the previously active package",
		Action: rollbackAction(),
	}
}

func rollbackAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "rollback").Logger()
		ctx = logger.WithContext(ctx)

		db, store, err := openManager(ctx, cmd)
		if err != nil {
			return err
		}

		defer db.Close()

		pkg, err := activation.New(db, store).Rollback(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.Root().Writer, "Rolled back to texbld %s (package %d)\n", pkg.Version, pkg.ID)

		return nil
	}
}
