package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/caseydemo/workout-app/internal/config"
	"github.com/caseydemo/workout-app/internal/logging"
	"github.com/caseydemo/workout-app/internal/tracker"
)

type rootOptions struct {
	configPath string
	server     string
	verbose    bool
	cfg        config.Client
	logger     *slog.Logger
	httpClient *http.Client
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "fittrack",
		Short:         "Log workouts and meals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.open(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.server, "server", "", "workout API base URL (overrides config)")
	flags.Duration("timeout", 0, "per-request timeout (overrides config)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "show local changes before the server confirms them")

	cmd.AddCommand(
		newListCmd(opts),
		newAddCmd(opts),
		newNoteCmd(opts),
		newRemoveCmd(opts),
	)
	return cmd
}

// open resolves configuration, mounts every category and puts the containers
// on the command context.
func (o *rootOptions) open(cmd *cobra.Command) error {
	cfg, err := config.LoadClient(o.configPath)
	if err != nil {
		return err
	}
	if o.server != "" {
		cfg.Server = o.server
	}
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		timeout, err := cmd.Flags().GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = timeout
	}
	level := cfg.LogLevel
	if o.verbose {
		level = "debug"
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogFormat, level)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	o.cfg, o.logger = cfg, logger

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	ctx := cmd.Context()
	session, err := tracker.Open(ctx, tracker.HTTPRemotes(cfg.Server, httpClient), tracker.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Debug("session opened", "server", cfg.Server)
	cmd.SetContext(session.Provide(ctx))
	return nil
}
