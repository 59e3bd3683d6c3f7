package texman

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/texbld/texman/pkg/database"
	"github.com/texbld/texman/pkg/helper"
	"github.com/texbld/texman/pkg/storage/local"
)

// ErrPackageIDRequired is returned if a command expecting a package id was
// invoked without one.
var ErrPackageIDRequired = errors.New("a package id argument is required")

// openManager opens the record store and the filesystem layout rooted at the
// --root flag.
func openManager(ctx context.Context, cmd *cli.Command) (*database.DB, *local.Store, error) {
	root := cmd.String("root")

	store, err := local.New(ctx, root)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening the store at %q: %w", root, err)
	}

	db, err := database.Open(ctx, helper.DatabasePath(root))
	if err != nil {
		return nil, nil, err
	}

	return db, store, nil
}

// packageIDArg parses the single package id argument of a command.
func packageIDArg(cmd *cli.Command) (int64, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return 0, ErrPackageIDRequired
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid package id %q: %w", arg, err)
	}

	return id, nil
}
