package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/biosim/geocap/internal/application"
	"github.com/biosim/geocap/internal/config"
)

// cli carries the state resolved once by the root command.
type cli struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "geocap",
		Short:         "geocap - geo-tagged field captures for crop inspections",
		Long:          "geocap captures photos for pest inspections and crop findings, tags them with a GPS fix and keeps them in a local store.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := c.configPath
			if path == "" {
				path = config.GetConfigPath()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = newLogger(cfg.Logging, cmd.ErrOrStderr())
			slog.SetDefault(c.logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/geocap/config.yaml)")

	rootCmd.AddCommand(newParentCmd(c))
	rootCmd.AddCommand(newCaptureCmd(c))
	rootCmd.AddCommand(newListCmd(c))
	rootCmd.AddCommand(newInfoCmd(c))
	rootCmd.AddCommand(newDeleteCmd(c))
	rootCmd.AddCommand(newWatchCmd(c))
	rootCmd.AddCommand(newLocateCmd(c))
	rootCmd.AddCommand(newMCPCmd(c))

	return rootCmd
}

func (c *cli) open() (*application.App, error) {
	return application.Open(c.cfg, c.logger)
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseID(value, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(value), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, value)
	}
	return id, nil
}
