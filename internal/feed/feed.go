// Package feed turns a mood or a search query into a list of videos.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dohr-michael/moodstream/internal/events"
	"github.com/dohr-michael/moodstream/internal/mood"
	"github.com/dohr-michael/moodstream/internal/youtube"
)

// ErrEmptyQuery is returned by ForQuery for a blank query.
var ErrEmptyQuery = errors.New("search query is empty")

// Kind says where a feed's query came from.
type Kind string

const (
	KindMood    Kind = "mood"
	KindSearch  Kind = "search"
	KindStarter Kind = "starter"
)

// Searcher finds videos for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]youtube.Video, error)
}

// Feed is one page of videos with its headings.
type Feed struct {
	Kind     Kind            `json:"kind" yaml:"kind"`
	Mood     mood.Label      `json:"mood,omitempty" yaml:"mood,omitempty"`
	Query    string          `json:"query" yaml:"query"`
	Title    string          `json:"title" yaml:"title"`
	Subtitle string          `json:"subtitle" yaml:"subtitle"`
	Videos   []youtube.Video `json:"videos" yaml:"videos"`
}

// Empty reports whether the feed has no videos.
func (f Feed) Empty() bool { return len(f.Videos) == 0 }

// EmptyMessage is the text shown in place of an empty grid.
func (f Feed) EmptyMessage() string {
	if f.Kind == KindSearch {
		return mood.EmptyMessage(f.Query)
	}
	return mood.EmptyMessage("")
}

// Request selects a feed. A non-blank Query wins over Mood; with neither,
// a random starter query is used.
type Request struct {
	Query string
	Mood  mood.Label
}

// Service resolves requests against a Searcher.
type Service struct {
	searcher Searcher
	picker   *mood.Picker
	bus      *events.Bus
	logger   *slog.Logger
}

// NewService creates a feed service. bus and logger may be nil.
func NewService(searcher Searcher, picker *mood.Picker, bus *events.Bus, logger *slog.Logger) *Service {
	if picker == nil {
		picker = mood.NewPicker(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{searcher: searcher, picker: picker, bus: bus, logger: logger}
}

// Load resolves req and fetches its videos.
func (s *Service) Load(ctx context.Context, req Request) (Feed, error) {
	if q := strings.TrimSpace(req.Query); q != "" {
		return s.fetch(ctx, Feed{Kind: KindSearch, Query: q})
	}
	if req.Mood != "" {
		return s.ForMood(ctx, req.Mood)
	}
	return s.Starter(ctx)
}

// ForMood fetches a feed for one of the mood's phrases.
func (s *Service) ForMood(ctx context.Context, l mood.Label) (Feed, error) {
	q, err := s.picker.ForMood(l)
	if err != nil {
		return Feed{}, err
	}
	return s.fetch(ctx, Feed{Kind: KindMood, Mood: l, Query: q})
}

// ForQuery fetches a feed for a user query.
func (s *Service) ForQuery(ctx context.Context, query string) (Feed, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Feed{}, ErrEmptyQuery
	}
	return s.fetch(ctx, Feed{Kind: KindSearch, Query: q})
}

// Starter fetches a feed for a random starter phrase.
func (s *Service) Starter(ctx context.Context) (Feed, error) {
	return s.fetch(ctx, Feed{Kind: KindStarter, Query: s.picker.Starter()})
}

func (s *Service) fetch(ctx context.Context, f Feed) (Feed, error) {
	heading := ""
	if f.Kind == KindSearch {
		heading = f.Query
	}
	f.Title = mood.Title(f.Mood, heading)
	f.Subtitle = mood.Subtitle(f.Mood, heading)

	videos, err := s.searcher.Search(ctx, f.Query)
	if err != nil {
		s.logger.Warn("feed fetch failed", "kind", f.Kind, "query", f.Query, "error", err)
		s.publish(ctx, events.FeedFailedPayload{Mood: string(f.Mood), Query: f.Query, Error: err.Error()})
		return Feed{}, fmt.Errorf("fetch %s feed: %w", f.Kind, err)
	}
	f.Videos = videos

	s.logger.Debug("feed loaded", "kind", f.Kind, "query", f.Query, "videos", len(videos))
	s.publish(ctx, events.FeedLoadedPayload{
		Kind:  string(f.Kind),
		Mood:  string(f.Mood),
		Query: f.Query,
		Title: f.Title,
		Count: len(videos),
	})
	return f, nil
}

func (s *Service) publish(ctx context.Context, payload events.EventPayload) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.NewTypedEventWithSession(events.SourceFeed, payload, events.SessionIDFromContext(ctx)))
}
