package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"aigated/internal/backend"
	"aigated/internal/config"
	"aigated/internal/gateway"
	"aigated/internal/httpapi"
	"aigated/internal/keys"
	"aigated/internal/manager"
	"aigated/internal/ratelimit"
	"aigated/internal/registry"
	"aigated/pkg/types"
)

// startServer stands up the whole stack from a config file, the way main
// wires it, minus the listener and signal handling.
func startServer(t *testing.T, budgetMB int) (*httptest.Server, *keys.Registry) {
	t.Helper()
	dir := t.TempDir()
	paths := map[string]string{}
	for _, name := range []string{"gen", "embed", "biz"} {
		p := filepath.Join(dir, name+".bin")
		if err := os.WriteFile(p, []byte("weights"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths[name] = p
	}

	cfgYAML := fmt.Sprintf(`
addr: ":0"
budget_mb: %d
models:
  - id: gen-1
    capability: generate
    path: %s
    est_mb: 10
  - id: embed-1
    capability: embed
    path: %s
    est_mb: 10
  - id: biz-1
    capability: business
    path: %s
    est_mb: 10
default_models:
  generate: gen-1
  embed: embed-1
  business: biz-1
max_wait_sec: 2
`, budgetMB, paths["gen"], paths["embed"], paths["biz"])
	cfgPath := filepath.Join(dir, "aigated.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	models, err := registry.FromEntries(cfg.Models)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	engines := make(map[types.Capability]backend.Engine)
	for _, c := range types.Capabilities() {
		if c == types.CapAdmin {
			continue
		}
		e := backend.NewSimEngine(c)
		e.SetLoadDelay(0)
		engines[c] = e
	}
	defaults := make(map[types.Capability]string)
	for raw, id := range cfg.DefaultModels {
		c, ok := types.ParseCapability(raw)
		if !ok {
			t.Fatalf("bad default capability %q", raw)
		}
		defaults[c] = id
	}

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:      models,
		Engines:       engines,
		BudgetMB:      cfg.BudgetMB,
		MarginMB:      cfg.MarginMB,
		DefaultModels: defaults,
		MaxWait:       time.Duration(cfg.MaxWaitSec) * time.Second,
	})
	t.Cleanup(func() { _ = mgr.Close() })
	if err := mgr.Preflight(); err != nil {
		t.Fatalf("preflight: %v", err)
	}

	kr := keys.NewRegistry(keys.NewMemStore())
	d := gateway.New(kr, ratelimit.NewWindowLimiter(), ratelimit.ParseScope(cfg.RateLimit.Scope), mgr, zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewMux(d))
	t.Cleanup(srv.Close)
	return srv, kr
}

func newKey(t *testing.T, kr *keys.Registry, caps []types.Capability, pol keys.Policy) string {
	t.Helper()
	_, raw, err := kr.Create(context.Background(), "e2e", caps, pol)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func postJSON(t *testing.T, url, apiKey string, body, out any) int {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url, apiKey string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}
