package texman

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/texbld/texman/pkg/database"
	"github.com/texbld/texman/pkg/installer"
)

func installCommand(flagSources flagSourcesFn) *cli.Command {
	return &cli.Command{
		Name:    "install",
		Aliases: []string{"i"},
		Usage:   "install a texbld build (nightly by default)",
		Action:  installAction(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "version",
				Usage: fmt.Sprintf("The version to install: %q or one of %v", database.VersionNightly, installer.SupportedStableVersions()),
				Value: database.VersionNightly,
			},
			&cli.StringFlag{
				Name:    "python",
				Usage:   "The python interpreter used for nightly zipapps and virtualenv provisioning",
				Sources: flagSources("python", "TEXMAN_PYTHON"),
				Value:   "python3",
			},
		},
	}
}

func installAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "install").Logger()
		ctx = logger.WithContext(ctx)

		db, store, err := openManager(ctx, cmd)
		if err != nil {
			return err
		}

		defer db.Close()

		provisioner := installer.NewVirtualenvProvisioner(cmd.String("python"), store.VirtualenvBootstrapPath())
		ins := installer.New(db, store, installer.NewHTTPFetcher(), provisioner)

		version := cmd.String("version")

		var pkg database.Package

		if version == database.VersionNightly {
			pkg, err = ins.InstallNightly(ctx)
		} else {
			pkg, err = ins.InstallStable(ctx, version)
		}

		if err != nil {
			return err
		}

		logger.Info().
			Int64("id", pkg.ID).
			Str("version", pkg.Version).
			Msg("installed; activate it with the switch command")

		fmt.Fprintf(cmd.Root().Writer, "Installed texbld %s as package %d\n", pkg.Version, pkg.ID)

		return nil
	}
}
