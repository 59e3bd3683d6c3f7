package texman

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/texbld/texman/pkg/activation"
)

func switchCommand() *cli.Command {
	return &cli.Command{
		Name:      "switch",
		Aliases:   []string{"sw"},
		Usage:     "make the given package the current one",
		ArgsUsage: "<id>",
		Action:    switchAction(),
	}
}

func switchAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "switch").Logger()
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

		pkg, err := activation.New(db, store).Switch(ctx, id)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.Root().Writer, "Switched to texbld %s (package %d)\n", pkg.Version, pkg.ID)

		return nil
	}
}
