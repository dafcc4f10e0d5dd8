package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/internal/history"
	moodmcp "github.com/dohr-michael/moodstream/internal/mcp"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp-serve",
		Usage: "Expose moods, feeds and the detection history as an MCP server (stdio)",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "filter",
				UsageText: "Comma separated tool names to expose (empty = all)",
			},
		},
		Action: runMCPServe,
	}
}

func runMCPServe(ctx context.Context, cmd *cli.Command) error {
	// Setup logging to stderr (stdout is used for MCP stdio transport)
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	svc := moodmcp.Services{
		Feed: newFeedService(cfg, newCredentialStore(), nil, slog.Default()),
	}
	if !cfg.History.Disabled {
		store, err := history.Open(ctx, cfg.History.Path, slog.Default())
		if err != nil {
			slog.Warn("history unavailable", "error", err)
		} else {
			defer store.Close()
			svc.History = store
		}
	}

	filter := cmd.StringArg("filter")
	slog.Debug("starting MCP server", "filter", filter)

	server, err := moodmcp.NewMCPServer(svc, filter)
	if err != nil {
		return err
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
