package texman

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/texbld/texman/pkg/database"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "list installed nightly and stable packages",
		Action:  listAction(),
	}
}

func listAction() cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		logger := zerolog.Ctx(ctx).With().Str("cmd", "list").Logger()
		ctx = logger.WithContext(ctx)

		db, _, err := openManager(ctx, cmd)
		if err != nil {
			return err
		}

		defer db.Close()

		nightlies, err := db.Nightlies(ctx)
		if err != nil {
			return err
		}

		stables, err := db.Stables(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.Root().Writer, "Nightlies:")
		writePackageTable(cmd.Root().Writer, nightlies)

		fmt.Fprintln(cmd.Root().Writer)
		fmt.Fprintln(cmd.Root().Writer, "Stables:")
		writePackageTable(cmd.Root().Writer, stables)

		return nil
	}
}

func writePackageTable(out io.Writer, pkgs []database.Package) {
	if len(pkgs) == 0 {
		fmt.Fprintln(out, "  (none)")

		return
	}

	w := tabwriter.NewWriter(out, 2, 8, 2, ' ', 0)

	fmt.Fprintln(w, "  ID\tVERSION\tCREATED\tLAST USED\tCURRENT")

	for _, pkg := range pkgs {
		usedAt := "-"
		if pkg.UsedAt != nil {
			usedAt = pkg.UsedAt.Format(time.RFC3339)
		}

		current := ""
		if pkg.Current {
			current = "*"
		}

		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\n",
			pkg.ID, pkg.Version, pkg.CreatedAt.Format(time.RFC3339), usedAt, current)
	}

	//nolint:errcheck
	w.Flush()
}
