package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dohr-michael/moodstream/internal/mood"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "sub", "history.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.Record(ctx, Entry{
		SessionID:  "s1",
		Label:      mood.Happy,
		Expression: mood.ExprHappy,
		Score:      0.8,
		Scores:     mood.Distribution{mood.ExprHappy: 0.8, mood.ExprNeutral: 0.2},
		DetectedAt: base,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated ID")
	}
	if _, err := s.Record(ctx, Entry{SessionID: "s2", Label: mood.Neutral, Fallback: true, DetectedAt: base.Add(time.Minute)}); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Label != mood.Neutral || !entries[0].Fallback {
		t.Fatalf("newest first expected, got %+v", entries[0])
	}
	got := entries[1]
	if got.ID != first.ID || got.Scores[mood.ExprHappy] != 0.8 || !got.DetectedAt.Equal(base) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	limited, _ := s.List(ctx, 1)
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d", len(limited))
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[mood.Happy] != 1 || counts[mood.Neutral] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestRecord_RejectsUnknownLabel(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Record(context.Background(), Entry{Label: "bored"}); err == nil {
		t.Fatal("expected error for unknown label")
	}
}

func TestPrune(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	now := time.Now()

	for _, age := range []time.Duration{48 * time.Hour, 2 * time.Hour, time.Minute} {
		if _, err := s.Record(ctx, Entry{Label: mood.Calm, DetectedAt: now.Add(-age)}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	entries, _ := s.List(ctx, 0)
	if len(entries) != 2 {
		t.Fatalf("remaining %d, want 2", len(entries))
	}
}
