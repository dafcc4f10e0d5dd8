package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/moodstream/internal/feed"
	"github.com/dohr-michael/moodstream/internal/mood"
	"github.com/dohr-michael/moodstream/internal/secrets"
)

var errNoKey = errors.New("no YouTube API key stored, run `moodstream key set` first")

// NewFeedCommand returns the feed subcommand.
func NewFeedCommand() *cli.Command {
	return &cli.Command{
		Name:      "feed",
		Usage:     "Print videos for a search query, a mood, or a random starter",
		ArgsUsage: "[query...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mood",
				Aliases: []string{"m"},
				Usage:   "Mood to browse: " + strings.Join(labelNames(), ", "),
			},
			formatFlag(),
		},
		Action: runFeed,
	}
}

func runFeed(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	req := feed.Request{Query: strings.Join(cmd.Args().Slice(), " ")}
	if m := cmd.String("mood"); m != "" {
		l, err := mood.ParseLabel(m)
		if err != nil {
			return err
		}
		req.Mood = l
	}

	creds := newCredentialStore()
	if err := requireKey(creds); err != nil {
		return err
	}

	f, err := newFeedService(cfg, creds, nil, slog.Default()).Load(ctx, req)
	if err != nil {
		return err
	}
	return printFeed(cmd.String("format"), f)
}

func requireKey(creds *secrets.CredentialStore) error {
	if !creds.Has() {
		return errNoKey
	}
	return nil
}

func printFeed(format string, f feed.Feed) error {
	if ok, err := writeStructured(os.Stdout, format, f); ok {
		return err
	}
	return renderMarkdown(os.Stdout, feedMarkdown(f))
}

func feedMarkdown(f feed.Feed) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n_%s_ (query: `%s`)\n\n", f.Title, f.Subtitle, f.Query)
	if f.Empty() {
		b.WriteString(f.EmptyMessage())
		b.WriteString("\n")
		return b.String()
	}
	for i, v := range f.Videos {
		fmt.Fprintf(&b, "%d. **[%s](%s)**", i+1, escapeMarkdown(v.Title), v.WatchURL())
		if v.ChannelTitle != "" {
			fmt.Fprintf(&b, " · %s", escapeMarkdown(v.ChannelTitle))
		}
		if v.ViewCount > 0 {
			fmt.Fprintf(&b, " · %d views", v.ViewCount)
		}
		if !v.PublishedAt.IsZero() {
			fmt.Fprintf(&b, " · %s", v.PublishedAt.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`, "`", "\\`", `|`, `\|`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func labelNames() []string {
	labels := mood.Labels()
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}
