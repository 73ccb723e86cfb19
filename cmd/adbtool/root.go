package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/actiondb/actiondb-go/internal/config"
	"github.com/actiondb/actiondb-go/internal/patternfinder"
)

// Build information, set with -ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// rootOptions carries the global flags and the state PersistentPreRunE
// builds from them to every subcommand.
type rootOptions struct {
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Extract structured fields from log lines with patterns",
		Long: `adbtool matches log lines against a file of templates such as

  sshd: user @STRING:user@ logged in from @IPv4:ip@

and outputs the fields each line yields.

Settings are read from adbtool.cue in the working directory or in
$XDG_CONFIG_HOME/adbtool, and from ADBTOOL_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"Config file (default: ./adbtool.cue, then $XDG_CONFIG_HOME/adbtool/adbtool.cue)")

	cmd.AddCommand(
		newValidateCmd(opts),
		newParseCmd(opts),
		newCompletionCmd(),
	)
	return cmd
}

func (o *rootOptions) init(cmd *cobra.Command) error {
	cfg, path, err := config.Load(config.LoadOptions{ConfigFilePath: o.configPath})
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	// Validate has already accepted the level.
	level, _ := charmlog.ParseLevel(cfg.Log.Level)
	if o.verbose {
		level = charmlog.DebugLevel
	}
	handler := charmlog.NewWithOptions(cmd.ErrOrStderr(), charmlog.Options{
		Prefix: config.AppName,
		Level:  level,
	})

	o.cfg = cfg
	o.logger = slog.New(handler)
	if path != "" {
		o.logger.Debug("loaded configuration", "file", path)
	}
	return nil
}

// patternFile resolves the pattern file from the argument, then the
// configured default, then the well-known locations.
func (o *rootOptions) patternFile(arg string) (string, error) {
	if arg == "" {
		arg = o.cfg.Patterns.File
	}
	path, err := patternfinder.FindPatternFile(arg)
	if err != nil {
		return "", &ExitError{Code: exitUsage, Err: err}
	}
	return path, nil
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command and exits with the code carried by an
// ExitError, or 1 for any other error.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(exitFailure)
	}
}
