package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sample struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("QUORUM_TEST_NAME", "quorum")
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "name: ${QUORUM_TEST_NAME}\nlevel: 3\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "quorum" || s.Level != 3 {
		t.Errorf("loaded %+v", s)
	}
}

func TestLoad_RunsValidator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "level: 1\n")

	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadWithDefaults_FallsBack(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "default.yaml")
	writeFile(t, def, "name: fallback\n")

	var s sample
	if err := LoadWithDefaults(filepath.Join(dir, "missing.yaml"), def, &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Name != "fallback" {
		t.Errorf("name = %q", s.Name)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "name: first\nlevel: 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *sample, 4)
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- Watch(ctx, path, func() *sample { return &sample{Level: 7} }, logger, func(s *sample) { got <- s })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "name: second\n")

	select {
	case s := <-got:
		if s.Name != "second" {
			t.Errorf("name = %q, want second", s.Name)
		}
		if s.Level != 7 {
			t.Errorf("level = %d, want default 7", s.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestExpandEnv_Fallback(t *testing.T) {
	t.Setenv("QUORUM_SET", "value")
	t.Setenv("QUORUM_EMPTY", "")

	cases := map[string]string{
		"${QUORUM_SET}":            "value",
		"${QUORUM_SET:-other}":     "value",
		"${QUORUM_EMPTY:-other}":   "other",
		"${QUORUM_MISSING:-other}": "other",
		"${QUORUM_MISSING}":        "",
		"$QUORUM_SET/x":            "value/x",
	}
	for in, want := range cases {
		if got := ExpandEnv(in); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "name: x\nlevle: 2\n")

	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}
