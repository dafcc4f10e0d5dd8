package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// waitFor polls until the heartbeat file exists.
func waitFor(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("heartbeat %s never written", path)
}

func TestRunWritesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "heartbeat.json")

	w := NewWriter(path, func() Snapshot {
		return Snapshot{Addr: "127.0.0.1:18430", Device: "ffmpeg", Sessions: 2, Detecting: 1, LastMood: "happy"}
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()
	waitFor(t, path)

	r, err := Read(path, 2*time.Minute)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r.Status != StatusAlive || r.Beat == nil {
		t.Fatalf("report = %+v", r)
	}
	if r.Beat.PID != os.Getpid() {
		t.Errorf("PID: got %d, want %d", r.Beat.PID, os.Getpid())
	}
	want := Snapshot{Addr: "127.0.0.1:18430", Device: "ffmpeg", Sessions: 2, Detecting: 1, LastMood: "happy"}
	if r.Beat.Snapshot != want {
		t.Errorf("snapshot = %+v, want %+v", r.Beat.Snapshot, want)
	}
}

func TestRunRemovesFileOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")

	w := NewWriter(path, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	waitFor(t, path)
	cancel()
	<-done

	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected heartbeat file to be removed, stat err = %v", err)
	}
}

func TestReadStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	now := time.Now()
	old := Beat{
		Snapshot:  Snapshot{Sessions: 1},
		PID:       os.Getpid(),
		StartedAt: now.Add(-2 * time.Hour),
		Timestamp: now.Add(-1 * time.Hour),
	}
	data, _ := json.Marshal(old)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Read(path, 30*time.Minute)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r.Status != StatusStale {
		t.Errorf("expected stale, got %s", r.Status)
	}
	if r.Age < 59*time.Minute {
		t.Errorf("age = %s", r.Age)
	}
	if got := r.Beat.Uptime(); got != time.Hour {
		t.Errorf("uptime = %s, want 1h", got)
	}
}

func TestReadMissing(t *testing.T) {
	r, err := Read(filepath.Join(t.TempDir(), "heartbeat.json"), 2*time.Minute)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r.Status != StatusDead || r.Beat != nil {
		t.Errorf("report = %+v", r)
	}
}

func TestReadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path, time.Minute); err == nil {
		t.Fatal("expected decode error")
	}
}
