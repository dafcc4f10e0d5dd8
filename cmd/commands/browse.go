package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/clients/tui"
	"github.com/dohr-michael/moodstream/internal/config"
)

// NewBrowseCommand returns the browse subcommand.
func NewBrowseCommand() *cli.Command {
	return &cli.Command{
		Name:   "browse",
		Usage:  "Launch the interactive video browser",
		Action: runBrowse,
	}
}

func runBrowse(ctx context.Context, cmd *cli.Command) error {
	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := openLogFile("tui.log")
	if err != nil {
		return err
	}
	defer logFile.Close()

	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	return tui.Run(ctx, tui.Deps{
		Feed:        svc.feed,
		Credentials: svc.creds,
		Sessions:    svc.sessions,
		Logger:      logger,
	})
}

func openLogFile(name string) (*os.File, error) {
	dir := config.LogsPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
