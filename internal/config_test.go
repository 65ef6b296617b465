package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/quorum/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLedgerConfig_RejectsSubSecondWindow(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Ledger.Window = 10 * time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Fatal("window below one second should fail")
	}
}

func TestLedgerConfig_RequiresWorkers(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Ledger.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero workers should fail")
	}
}

func TestRecommendConfig_PageSizeBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Recommend.PageSize = 500
	if err := cfg.Validate(); err == nil {
		t.Fatal("page size above 100 should fail")
	}
}

func TestRateLimitConfig_ZeroDisables(t *testing.T) {
	cfg := RateLimitConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero rate limit should validate: %v", err)
	}
	if cfg.Enabled() {
		t.Error("zero reports per minute should disable throttling")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `app:
  log_level: debug
  http:
    port: 9090
sqlite:
  path: /tmp/q.db
ledger:
  window: 30s
  workers: 4
recommend:
  page_size: 20
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.Ledger.Window != 30*time.Second || cfg.Ledger.Workers != 4 {
		t.Errorf("ledger = %+v", cfg.Ledger)
	}
	if cfg.Ledger.QueueSize != 256 {
		t.Errorf("queue size default lost: %d", cfg.Ledger.QueueSize)
	}
	if cfg.Recommend.PageSize != 20 || cfg.Recommend.HistoryLimit != 50 {
		t.Errorf("recommend = %+v", cfg.Recommend)
	}
}
