package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/internal/history"
	"github.com/dohr-michael/moodstream/internal/mood"
)

// NewHistoryCommand returns the history subcommand.
func NewHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect the detected mood log",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent detections, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum entries", Value: 20},
					formatFlag(),
				},
				Action: runHistoryList,
			},
			{
				Name:   "stats",
				Usage:  "Count detections per mood",
				Flags:  []cli.Flag{formatFlag()},
				Action: runHistoryStats,
			},
			{
				Name:  "prune",
				Usage: "Delete old detections",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Usage: "Age cutoff (defaults to history.retention)"},
				},
				Action: runHistoryPrune,
			},
		},
		DefaultCommand: "list",
	}
}

func openHistory(ctx context.Context, cmd *cli.Command) (*history.Store, time.Duration, error) {
	setupLogging(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, 0, err
	}
	if cfg.History.Disabled {
		return nil, 0, fmt.Errorf("history is disabled in %s", cmd.String("config"))
	}
	store, err := history.Open(ctx, cfg.History.Path, slog.Default())
	if err != nil {
		return nil, 0, err
	}
	return store, cfg.History.Retention.Duration(), nil
}

func runHistoryList(ctx context.Context, cmd *cli.Command) error {
	store, _, err := openHistory(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(ctx, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	if ok, err := writeStructured(os.Stdout, cmd.String("format"), entries); ok {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No moods detected yet.")
		return nil
	}
	return renderMarkdown(os.Stdout, historyMarkdown(entries))
}

func historyMarkdown(entries []history.Entry) string {
	var b strings.Builder
	b.WriteString("| When | Mood | Expression | Score |\n|---|---|---|---|\n")
	for _, e := range entries {
		expr := string(e.Expression)
		if e.Fallback {
			expr = "(default)"
		}
		fmt.Fprintf(&b, "| %s | %s %s | %s | %.2f |\n",
			e.DetectedAt.Local().Format("2006-01-02 15:04"), e.Label.Emoji(), e.Label, expr, e.Score)
	}
	return b.String()
}

func runHistoryStats(ctx context.Context, cmd *cli.Command) error {
	store, _, err := openHistory(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count history: %w", err)
	}
	out := make(map[string]int, len(counts))
	for l, n := range counts {
		out[string(l)] = n
	}
	if ok, err := writeStructured(os.Stdout, cmd.String("format"), out); ok {
		return err
	}

	var b strings.Builder
	b.WriteString("| Mood | Detections |\n|---|---|\n")
	for _, l := range mood.Labels() {
		fmt.Fprintf(&b, "| %s %s | %d |\n", l.Emoji(), l, counts[l])
	}
	return renderMarkdown(os.Stdout, b.String())
}

func runHistoryPrune(ctx context.Context, cmd *cli.Command) error {
	store, retention, err := openHistory(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if cmd.IsSet("older-than") {
		retention = cmd.Duration("older-than")
	}
	n, err := store.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	fmt.Printf("Removed %d detection(s) older than %s.\n", n, retention)
	return nil
}
