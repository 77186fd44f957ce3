package main

import (
	"context"
	"fmt"
	"os"

	"github.com/soundleaf/folderplay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup initializes the preference database, creating a config file from the
// template when none exists.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		if config, err := shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		} else {
			r.config = config
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else if config, err := shared.LoadConfig(configPath); err == nil {
			r.config = config
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if err := r.ensureStore(); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// ConfigInit writes a config file from the embedded template.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	return r.writePlain("wrote %s\n", path)
}

// ConfigShow prints the effective configuration with secrets blanked.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	shown := *r.config
	if shown.AI.APIKey != "" {
		shown.AI.APIKey = "<set>"
	}
	return r.writeJSON(shown, true)
}

// Reset clears playback state and browse preferences. Source configs stay.
func (r *Runner) Reset(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}
	if err := r.playback.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	return r.writePlain("playback state cleared\n")
}
