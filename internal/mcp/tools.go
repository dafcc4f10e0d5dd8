package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dohr-michael/moodstream/internal/feed"
	"github.com/dohr-michael/moodstream/internal/history"
	"github.com/dohr-michael/moodstream/internal/mood"
)

// FeedLoader resolves video feeds.
type FeedLoader interface {
	ForMood(ctx context.Context, l mood.Label) (feed.Feed, error)
	ForQuery(ctx context.Context, q string) (feed.Feed, error)
}

// HistoryLister reads the detection log.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// Services backs the tools. History may be nil.
type Services struct {
	Feed    FeedLoader
	History HistoryLister
}

type tool struct {
	spec ToolSpec
	run  func(ctx context.Context, args json.RawMessage) (any, error)
}

func labelNames() []string {
	labels := mood.Labels()
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}

func buildTools(svc Services) []tool {
	tools := []tool{
		{
			spec: ToolSpec{
				Name:        "list_moods",
				Description: "List the supported moods with their emoji and the search phrases used for each.",
				Parameters:  map[string]ParamSpec{},
			},
			run: func(context.Context, json.RawMessage) (any, error) {
				type moodInfo struct {
					Label   string   `json:"label"`
					Emoji   string   `json:"emoji"`
					Queries []string `json:"queries"`
				}
				var out []moodInfo
				for _, l := range mood.Labels() {
					out = append(out, moodInfo{Label: string(l), Emoji: l.Emoji(), Queries: mood.Queries(l)})
				}
				return out, nil
			},
		},
		{
			spec: ToolSpec{
				Name:        "feed_for_mood",
				Description: "Fetch YouTube videos matching a mood.",
				Parameters: map[string]ParamSpec{
					"mood": {Type: "string", Description: "The mood to browse", Required: true, Enum: labelNames()},
				},
			},
			run: func(ctx context.Context, args json.RawMessage) (any, error) {
				var p struct {
					Mood string `json:"mood"`
				}
				if err := decodeArgs(args, &p); err != nil {
					return nil, err
				}
				l, err := mood.ParseLabel(p.Mood)
				if err != nil {
					return nil, err
				}
				return svc.Feed.ForMood(ctx, l)
			},
		},
		{
			spec: ToolSpec{
				Name:        "search_videos",
				Description: "Search embeddable YouTube videos.",
				Parameters: map[string]ParamSpec{
					"query": {Type: "string", Description: "Search keywords", Required: true},
				},
			},
			run: func(ctx context.Context, args json.RawMessage) (any, error) {
				var p struct {
					Query string `json:"query"`
				}
				if err := decodeArgs(args, &p); err != nil {
					return nil, err
				}
				return svc.Feed.ForQuery(ctx, p.Query)
			},
		},
	}

	if svc.History != nil {
		tools = append(tools, tool{
			spec: ToolSpec{
				Name:        "recent_moods",
				Description: "List the most recently detected moods, newest first.",
				Parameters: map[string]ParamSpec{
					"limit": {Type: "integer", Description: "Maximum number of entries", Default: 10},
				},
			},
			run: func(ctx context.Context, args json.RawMessage) (any, error) {
				p := struct {
					Limit int `json:"limit"`
				}{Limit: 10}
				if err := decodeArgs(args, &p); err != nil {
					return nil, err
				}
				entries, err := svc.History.List(ctx, p.Limit)
				if err != nil {
					return nil, err
				}
				if entries == nil {
					entries = []history.Entry{}
				}
				return entries, nil
			},
		})
	}
	return tools
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// errNoTools is returned when the filter leaves nothing to serve.
var errNoTools = errors.New("no tool matches the filter")
