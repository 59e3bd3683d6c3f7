package texman

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/texbld/texman/pkg/installer"
)

func setupCommand(flagSources flagSourcesFn) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "download the virtualenv bootstrap used to provision stable runtimes",
		Action: setupAction(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "python",
				Usage:   "The python interpreter used for virtualenv provisioning",
				Sources: flagSources("python", "TEXMAN_PYTHON"),
				Value:   "python3",
			},
		},
	}
}

func setupAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "setup").Logger()
		ctx = logger.WithContext(ctx)

		db, store, err := openManager(ctx, cmd)
		if err != nil {
			return err
		}

		defer db.Close()

		provisioner := installer.NewVirtualenvProvisioner(cmd.String("python"), store.VirtualenvBootstrapPath())
		ins := installer.New(db, store, installer.NewHTTPFetcher(), provisioner)

		if err := ins.Setup(ctx); err != nil {
			return err
		}

		fmt.Fprintf(cmd.Root().Writer, "Virtualenv bootstrap available at %s\n", store.VirtualenvBootstrapPath())

		return nil
	}
}
