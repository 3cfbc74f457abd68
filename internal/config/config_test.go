package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
postgres:
  url: postgres://localhost/prep
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Scoring.Strength != 70 || cfg.Scoring.Weakness != 40 {
		t.Fatalf("expected default thresholds, got %+v", cfg.Scoring)
	}
	if cfg.Exam.MinDuration != 15 || cfg.Exam.MaxDuration != 180 {
		t.Fatalf("expected default durations, got %+v", cfg.Exam)
	}
}

func TestLoadReadsThresholds(t *testing.T) {
	path := writeConfig(t, `
scoring:
  strength_threshold: 80
  weakness_threshold: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scoring.Strength != 80 || cfg.Scoring.Weakness != 50 {
		t.Fatalf("unexpected thresholds %+v", cfg.Scoring)
	}
}

func TestLoadDefaultsEachThresholdSeparately(t *testing.T) {
	path := writeConfig(t, `
scoring:
  strength_threshold: 80
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scoring.Strength != 80 || cfg.Scoring.Weakness != 40 {
		t.Fatalf("expected strength 80 with default weakness 40, got %+v", cfg.Scoring)
	}

	path = writeConfig(t, `
scoring:
  weakness_threshold: 30
`)
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scoring.Strength != 70 || cfg.Scoring.Weakness != 30 {
		t.Fatalf("expected default strength 70 with weakness 30, got %+v", cfg.Scoring)
	}
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	path := writeConfig(t, `
scoring:
  strength_threshold: 30
  weakness_threshold: 60
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on garbage, got %v", got)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
