package texman

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:   "history",
		Usage:  "list previously activated packages, the current one first",
		Action: historyAction(),
	}
}

func historyAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "history").Logger()
		ctx = logger.WithContext(ctx)

		db, _, err := openManager(ctx, cmd)
		if err != nil {
			return err
		}

		defer db.Close()

		pkgs, err := db.History(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.Root().Writer, "History:")
		writePackageTable(cmd.Root().Writer, pkgs)

		return nil
	}
}
