package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SCHEDULER_CONFIG_FILE",
		"SCHEDULER_HTTP_PORT",
		"SCHEDULER_SQLITE_DSN",
		"SCHEDULER_API_KEY_DIGEST",
		"SCHEDULER_LOG_LEVEL",
		"SCHEDULER_SOLVE_TIMEOUT",
		"SCHEDULER_DAY_START",
		"SCHEDULER_DAY_END",
		"SCHEDULER_STRATEGY",
		"SCHEDULER_PENALTY_WEIGHT",
		"SCHEDULER_WINDOW_TOLERANCE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.DayStart != "08:00" || cfg.DayEnd != "22:00" {
		t.Errorf("day window = %s..%s, want 08:00..22:00", cfg.DayStart, cfg.DayEnd)
	}
	if cfg.Strategy != "earliest" {
		t.Errorf("Strategy = %q, want earliest", cfg.Strategy)
	}
	if cfg.PenaltyWeight != 0.3 {
		t.Errorf("PenaltyWeight = %v, want 0.3", cfg.PenaltyWeight)
	}
	if cfg.SolveTimeout != 30*time.Second {
		t.Errorf("SolveTimeout = %v, want 30s", cfg.SolveTimeout)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHEDULER_HTTP_PORT", "9090")
	t.Setenv("SCHEDULER_STRATEGY", "latest")
	t.Setenv("SCHEDULER_SOLVE_TIMEOUT", "5s")
	t.Setenv("SCHEDULER_PENALTY_WEIGHT", "1.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", cfg.HTTPPort)
	}
	if cfg.Strategy != "latest" {
		t.Errorf("Strategy = %q, want latest", cfg.Strategy)
	}
	if cfg.SolveTimeout != 5*time.Second {
		t.Errorf("SolveTimeout = %v, want 5s", cfg.SolveTimeout)
	}
	if cfg.PenaltyWeight != 1.5 {
		t.Errorf("PenaltyWeight = %v, want 1.5", cfg.PenaltyWeight)
	}
}

func TestLoadAccumulatesInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHEDULER_HTTP_PORT", "-1")
	t.Setenv("SCHEDULER_PENALTY_WEIGHT", "heavy")

	_, err := Load()
	if err == nil {
		t.Fatal("Load succeeded, want error")
	}
	message := err.Error()
	if !strings.Contains(message, "SCHEDULER_HTTP_PORT") || !strings.Contains(message, "SCHEDULER_PENALTY_WEIGHT") {
		t.Errorf("error %q does not name both invalid variables", message)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "scheduler.toml")
	content := `
http_port = 9000
strategy = "latest"
solve_timeout = "10s"
penalty_weight = 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("cannot write config file: %v", err)
	}
	t.Setenv("SCHEDULER_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 9000 || cfg.Strategy != "latest" || cfg.SolveTimeout != 10*time.Second || cfg.PenaltyWeight != 0.5 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "scheduler.toml")
	if err := os.WriteFile(path, []byte("http_port = 9000\n"), 0o600); err != nil {
		t.Fatalf("cannot write config file: %v", err)
	}
	t.Setenv("SCHEDULER_CONFIG_FILE", path)
	t.Setenv("SCHEDULER_HTTP_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 9100 {
		t.Errorf("HTTPPort = %d, want the environment's 9100", cfg.HTTPPort)
	}
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "scheduler.toml")
	if err := os.WriteFile(path, []byte("speed = \"fast\"\n"), 0o600); err != nil {
		t.Fatalf("cannot write config file: %v", err)
	}
	t.Setenv("SCHEDULER_CONFIG_FILE", path)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "speed") {
		t.Fatalf("Load = %v, want unknown key error naming \"speed\"", err)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHEDULER_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded, want error for missing file")
	}
}
