package feed

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/dohr-michael/moodstream/internal/events"
	"github.com/dohr-michael/moodstream/internal/mood"
	"github.com/dohr-michael/moodstream/internal/youtube"
)

type fakeSearcher struct {
	queries []string
	videos  []youtube.Video
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, q string) ([]youtube.Video, error) {
	f.queries = append(f.queries, q)
	return f.videos, f.err
}

func newService(s Searcher, bus *events.Bus) *Service {
	return NewService(s, mood.NewPicker(rand.New(rand.NewPCG(1, 2))), bus, nil)
}

func TestForMood(t *testing.T) {
	s := &fakeSearcher{videos: []youtube.Video{{ID: "a"}}}
	f, err := newService(s, nil).ForMood(context.Background(), mood.Happy)
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind != KindMood || f.Mood != mood.Happy {
		t.Fatalf("unexpected feed %+v", f)
	}
	if !slices.Contains(mood.Queries(mood.Happy), f.Query) {
		t.Fatalf("query %q is not a happy query", f.Query)
	}
	if f.Title != "Timeline curated for your happy mood 😊" {
		t.Fatalf("title = %q", f.Title)
	}
	if len(f.Videos) != 1 {
		t.Fatalf("videos = %v", f.Videos)
	}
}

func TestForMood_UnknownLabel(t *testing.T) {
	_, err := newService(&fakeSearcher{}, nil).ForMood(context.Background(), mood.Label("bored"))
	if !errors.Is(err, mood.ErrUnknownLabel) {
		t.Fatalf("expected ErrUnknownLabel, got %v", err)
	}
}

func TestForQuery(t *testing.T) {
	s := &fakeSearcher{}
	svc := newService(s, nil)

	if _, err := svc.ForQuery(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}

	f, err := svc.ForQuery(context.Background(), "  lofi beats ")
	if err != nil {
		t.Fatal(err)
	}
	if f.Query != "lofi beats" || s.queries[0] != "lofi beats" {
		t.Fatalf("query not trimmed: %q", f.Query)
	}
	if f.Title != `Search results for "lofi beats"` {
		t.Fatalf("title = %q", f.Title)
	}
	if !f.Empty() || f.EmptyMessage() != "No videos found for your search. Try different keywords!" {
		t.Fatalf("empty message = %q", f.EmptyMessage())
	}
}

func TestLoad_Precedence(t *testing.T) {
	s := &fakeSearcher{}
	svc := newService(s, nil)

	f, _ := svc.Load(context.Background(), Request{Query: "cats", Mood: mood.Sad})
	if f.Kind != KindSearch || f.Mood != "" {
		t.Fatalf("query should win over mood: %+v", f)
	}

	f, _ = svc.Load(context.Background(), Request{Mood: mood.Sad})
	if f.Kind != KindMood {
		t.Fatalf("expected mood feed, got %s", f.Kind)
	}

	f, _ = svc.Load(context.Background(), Request{})
	if f.Kind != KindStarter || !slices.Contains(mood.StarterQueries(), f.Query) {
		t.Fatalf("expected starter feed, got %+v", f)
	}
	if f.Title != "Random videos for you" {
		t.Fatalf("title = %q", f.Title)
	}
}

func TestFetch_PublishesEvents(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	ch, unsub := bus.SubscribeChan(4, events.EventFeedLoaded, events.EventFeedFailed)
	defer unsub()

	s := &fakeSearcher{videos: []youtube.Video{{ID: "a"}, {ID: "b"}}}
	ctx := events.ContextWithSessionID(context.Background(), "sess-1")
	if _, err := newService(s, bus).ForQuery(ctx, "cats"); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-ch:
		p, ok := events.ExtractPayload[events.FeedLoadedPayload](e)
		if !ok || p.Count != 2 || p.Query != "cats" || e.SessionID != "sess-1" {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no feed.loaded event")
	}

	s.err = errors.New("quota exceeded")
	if _, err := newService(s, bus).ForQuery(ctx, "cats"); err == nil {
		t.Fatal("expected error")
	}
	select {
	case e := <-ch:
		p, ok := events.ExtractPayload[events.FeedFailedPayload](e)
		if !ok || p.Error != "quota exceeded" {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no feed.failed event")
	}
}
