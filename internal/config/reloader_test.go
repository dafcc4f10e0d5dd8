package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestReloader_Current(t *testing.T) {
	cfg := &Config{}
	cfg.Gateway.Port = 9999

	r := NewReloader("", "", cfg)
	got := r.Current()
	if got.Gateway.Port != 9999 {
		t.Errorf("Current().Gateway.Port = %d, want 9999", got.Gateway.Port)
	}
}

func TestReloader_Reload(t *testing.T) {
	dir := t.TempDir()
	dotenvPath := filepath.Join(dir, ".env")
	configPath := filepath.Join(dir, "config.jsonc")

	// Write initial .env
	if err := os.WriteFile(dotenvPath, []byte("MY_VAR=initial\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Write minimal config
	configContent := `{
		"gateway": {"host": "127.0.0.1", "port": 18430},
		"youtube": {"min_views": 500},
		"events": {"buffer_size": 1024}
	}`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	initial := &Config{}
	r := NewReloader(configPath, dotenvPath, initial)

	// Track listener invocations
	var callCount atomic.Int32
	var changed []string
	r.OnReload(func(ev Reload) {
		callCount.Add(1)
		changed = ev.Changed
	})

	// Update .env
	if err := os.WriteFile(dotenvPath, []byte("MY_VAR=reloaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if os.Getenv("MY_VAR") != "reloaded" {
		t.Errorf("MY_VAR = %q, want 'reloaded'", os.Getenv("MY_VAR"))
	}

	if callCount.Load() != 1 {
		t.Errorf("listener called %d times, want 1", callCount.Load())
	}

	// New config is available
	got := r.Current()
	if got == initial {
		t.Error("Current() still returns initial config after reload")
	}
	if got.YouTube.MinViews != 500 {
		t.Errorf("MinViews = %d, want 500", got.YouTube.MinViews)
	}
	if !(Reload{Changed: changed}).Touches("youtube") {
		t.Errorf("changed = %v, want youtube listed", changed)
	}
}

func TestReloader_KeepsConfigOnError(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.jsonc")
	if err := os.WriteFile(configPath, []byte(`{ "gateway": `), 0o644); err != nil {
		t.Fatal(err)
	}

	initial := &Config{}
	r := NewReloader(configPath, filepath.Join(dir, ".env"), initial)
	r.OnReload(func(Reload) { t.Error("listener called for a failed reload") })

	if err := r.Reload(); err == nil {
		t.Fatal("expected a parse error")
	}
	if r.Current() != initial {
		t.Error("config replaced by a failed reload")
	}
}

func TestChangedSections(t *testing.T) {
	a := &Config{}
	a.Capture.MaxAttempts = 3
	a.Policy.StrictThreshold = 0.6

	b := &Config{}
	b.Capture.MaxAttempts = 5
	b.Policy.StrictThreshold = 0.6

	got := ChangedSections(a, b)
	if len(got) != 1 || got[0] != "capture" {
		t.Fatalf("ChangedSections = %v, want [capture]", got)
	}
	if got := ChangedSections(a, a); len(got) != 0 {
		t.Fatalf("identical configs report %v", got)
	}

	ev := Reload{Changed: []string{"youtube"}}
	if ev.Touches("capture", "policy", "models") {
		t.Error("Touches matched an unchanged section")
	}
	if !ev.Touches("models", "youtube") {
		t.Error("Touches missed a changed section")
	}
}

func TestReloader_ReloadMissingDotenv(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.jsonc")
	dotenvPath := filepath.Join(dir, ".env") // does not exist

	configContent := `{"gateway": {"host": "127.0.0.1", "port": 18430}, "events": {"buffer_size": 1024}}`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	initial := &Config{}
	r := NewReloader(configPath, dotenvPath, initial)

	// Should not error: missing .env is ok
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload with missing .env: %v", err)
	}
}
