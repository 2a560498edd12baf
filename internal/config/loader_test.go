package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "cfg.yaml", `
addr: ":9090"
budget_mb: 2048
margin_mb: 128
models:
  - id: "llm:tiny"
    capability: generate
    path: /models/tiny.gguf
    est_mb: 600
rate_limit:
  requests: 10
  window_sec: 60
  scope: key
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.BudgetMB != 2048 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].ID != "llm:tiny" || cfg.Models[0].EstMB != 600 {
		t.Fatalf("unexpected models: %+v", cfg.Models)
	}
	if cfg.RateLimit.Requests != 10 || cfg.RateLimit.WindowSec != 60 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadTOMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	pt := writeFile(t, dir, "cfg.toml", "addr = \":1234\"\nbudget_mb = 100\n")
	cfg, err := Load(pt)
	if err != nil {
		t.Fatalf("Load toml: %v", err)
	}
	if cfg.Addr != ":1234" || cfg.BudgetMB != 100 {
		t.Fatalf("unexpected toml cfg: %+v", cfg)
	}
	pj := writeFile(t, dir, "cfg.json", `{"addr": ":5678", "max_body_mb": 4}`)
	cfg, err = Load(pj)
	if err != nil {
		t.Fatalf("Load json: %v", err)
	}
	if cfg.Addr != ":5678" || cfg.MaxBodyMB != 4 {
		t.Fatalf("unexpected json cfg: %+v", cfg)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "cfg.ini", "addr=:1\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []Config{
		{BudgetMB: -1},
		{RateLimit: RateLimitConfig{Requests: -5}},
		{RateLimit: RateLimitConfig{Scope: "per-planet"}},
		{Concurrency: map[string]int{"generate": 0}},
		{Models: []ModelEntry{{ID: "a", Path: "p"}, {ID: "a", Path: "q"}}},
		{Models: []ModelEntry{{ID: "", Path: "p"}}},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("AIGATED_ADDR", ":7777")
	t.Setenv("AIGATED_BUDGET_MB", "4096")
	t.Setenv("AIGATED_RATE_SCOPE", "key_capability")
	cfg := Config{Addr: ":8080", BudgetMB: 1}
	ApplyEnv(&cfg)
	if cfg.Addr != ":7777" || cfg.BudgetMB != 4096 || cfg.RateLimit.Scope != "key_capability" {
		t.Fatalf("env overlay not applied: %+v", cfg)
	}
}

func TestLoadEnvFileMissingIsNoError(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing env file should not error: %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "test.env", "AIGATED_KEYS_DB=/tmp/keys.db\n")
	if err := LoadEnvFile(p); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	var cfg Config
	ApplyEnv(&cfg)
	if cfg.KeysDB != "/tmp/keys.db" {
		t.Fatalf("expected keys db from env file, got %q", cfg.KeysDB)
	}
}
