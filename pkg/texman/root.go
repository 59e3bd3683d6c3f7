package texman

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli-altsrc/v3/json"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	altsrc "github.com/urfave/cli-altsrc/v3"

	"github.com/texbld/texman/pkg/helper"
)

// Version defines the version of the binary, and is meant to be set with ldflags at build time.
//
//nolint:gochecknoglobals
var Version = "dev"

type flagSourcesFn func(configFileKey, envVar string) cli.ValueSourceChain

func New() (*cli.Command, error) {
	var configPath string

	flagSources := func(configFileKey, envVar string) cli.ValueSourceChain {
		return cli.NewValueSourceChain(
			toml.TOML(configFileKey, altsrc.NewStringPtrSourcer(&configPath)),
			yaml.YAML(configFileKey, altsrc.NewStringPtrSourcer(&configPath)),
			json.JSON(configFileKey, altsrc.NewStringPtrSourcer(&configPath)),
			cli.EnvVar(envVar),
		)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("unable to determine user config directory: %w", err)
	}

	defaultRoot, err := helper.RootDir()
	if err != nil {
		return nil, err
	}

	c := &cli.Command{
		Name:    "texman",
		Usage:   "TeXbld version manager",
		Version: Version,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return getZeroLogger(ctx, cmd)
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Set the log level",
				Sources: flagSources("log.level", "LOG_LEVEL"),
				Value:   "info",
				Validator: func(lvl string) error {
					_, err := zerolog.ParseLevel(lvl)

					return err
				},
			},
			&cli.BoolFlag{
				Name:  "log-console-writer-enabled",
				Usage: "Enable console writer for zerolog. This is useful when running in terminal.",
				Value: term.IsTerminal(int(os.Stdout.Fd())),
			},
			&cli.StringFlag{
				Name:        "config",
				Usage:       "Path to the configuration file (json, toml, yaml)",
				Sources:     cli.EnvVars("TEXMAN_CONFIG_FILE"),
				Value:       filepath.Join(configDir, "texman", "config.yaml"),
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:    "root",
				Usage:   "The manager root directory holding the record store, package store and launcher",
				Sources: flagSources("root", helper.RootEnvVar),
				Value:   defaultRoot,
				Validator: func(root string) error {
					if !filepath.IsAbs(root) {
						return fmt.Errorf("root %q is not an absolute path", root)
					}

					return nil
				},
			},
		},
		Commands: []*cli.Command{
			installCommand(flagSources),
			switchCommand(),
			removeCommand(),
			listCommand(),
			rollbackCommand(),
			historyCommand(),
			setupCommand(flagSources),
			doctorCommand(),
		},
	}

	return c, nil
}

func getZeroLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	logLvl := cmd.String("log-level")

	lvl, err := zerolog.ParseLevel(logLvl)
	if err != nil {
		return ctx, fmt.Errorf("error parsing the log-level %q: %w", logLvl, err)
	}

	var output io.Writer = os.Stderr

	if cmd.Bool("log-console-writer-enabled") {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return logger.WithContext(ctx), nil
}
