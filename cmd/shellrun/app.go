package main

import (
	"fmt"
	"os"

	"github.com/deixis/shellrun/internal/config"
	"github.com/deixis/shellrun/internal/logging"
	"github.com/deixis/shellrun/internal/runner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds what the subcommands share once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
}

// setup loads configuration and initialises logging.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}

	loaded, err := config.Load(a.configPath, workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = loaded.Config

	level := a.logLevel
	if level == "" {
		level = a.cfg.Level()
	}
	a.logger, err = logging.Init(level)
	if err != nil {
		return err
	}

	if loaded.Path != "" {
		a.logger.Debug().Str("path", loaded.Path).Msg("loaded config")
	}
	return nil
}

func (a *app) newRunner() *runner.Runner {
	return &runner.Runner{
		Shell:     a.cfg.Shell,
		MaxOutput: a.cfg.MaxOutputBytes(),
		WaitDelay: a.cfg.WaitDelay(),
		Logger:    a.logger,
	}
}
