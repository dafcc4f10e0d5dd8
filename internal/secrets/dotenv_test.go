package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetEntry_NewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	if err := SetEntry(path, "API_KEY", "secret123"); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if !strings.Contains(string(data), "API_KEY=secret123") {
		t.Errorf("expected API_KEY=secret123, got:\n%s", data)
	}
}

func TestSetEntry_UpdateExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	initial := "# comment\nFOO=bar\nBAZ=qux\n"
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetEntry(path, "FOO", "updated"); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "FOO=updated") {
		t.Errorf("expected FOO=updated, got:\n%s", content)
	}
	if !strings.Contains(content, "# comment") {
		t.Error("comment was lost")
	}
	if !strings.Contains(content, "BAZ=qux") {
		t.Error("other entries were lost")
	}
}

func TestSetEntry_AppendsNew(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	initial := "EXISTING=value\n"
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetEntry(path, "NEW_KEY", "new_value"); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "EXISTING=value") {
		t.Error("existing entry was lost")
	}
	if !strings.Contains(content, "NEW_KEY=new_value") {
		t.Errorf("new entry not found, got:\n%s", content)
	}
}

func TestSetEntry_QuotesSpecialChars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	if err := SetEntry(path, "TOKEN", "value with spaces"); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if !strings.Contains(string(data), `TOKEN="value with spaces"`) {
		t.Errorf("expected quoted value, got:\n%s", data)
	}
}

func TestSetEntry_Permissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	if err := SetEntry(path, "KEY", "val"); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}
}

func TestGetEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	if err := SetEntry(path, "TOKEN", `va"lue with spaces`); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}

	got, err := GetEntry(path, "TOKEN")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got != `va"lue with spaces` {
		t.Errorf("GetEntry = %q", got)
	}

	missing, err := GetEntry(filepath.Join(dir, "nope.env"), "TOKEN")
	if err != nil || missing != "" {
		t.Errorf("missing file: got %q, %v", missing, err)
	}
}

func TestRemoveEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	initial := "# keep\nA=1\nB=2\n"
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := RemoveEntry(path, "A"); err != nil {
		t.Fatalf("RemoveEntry: %v", err)
	}
	data, _ := os.ReadFile(path)
	content := string(data)
	if strings.Contains(content, "A=1") {
		t.Errorf("entry not removed:\n%s", content)
	}
	if !strings.Contains(content, "# keep") || !strings.Contains(content, "B=2") {
		t.Errorf("unrelated lines lost:\n%s", content)
	}

	if err := RemoveEntry(path, "MISSING"); err != nil {
		t.Errorf("removing an absent key: %v", err)
	}
}
