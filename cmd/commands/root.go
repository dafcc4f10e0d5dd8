package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "moodstream",
		Usage: "Browse videos that match your mood",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewInitCommand(),
			NewBrowseCommand(),
			NewDetectCommand(),
			NewFeedCommand(),
			NewKeyCommand(),
			NewHistoryCommand(),
			NewGatewayCommand(),
			NewStatusCommand(),
			NewModelsCommand(),
			NewMCPServeCommand(),
		},
	}
}
