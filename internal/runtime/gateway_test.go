package runtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/handlegraph/followings-gateway/internal/config"
	"github.com/handlegraph/followings-gateway/internal/registration"
)

func init() {
	// Register built-in adapter factories for testing
	registration.RegisterBuiltins()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNew_RequiresConfigFile(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("expected error without a config file")
	}
	if !strings.Contains(err.Error(), "WithConfigFile") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGateway_StartAndShutdown(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  port: 18090
upstream:
  adapter: bearer
  bearer:
    token: test-token
storage:
  type: memory
`)

	gw, err := New(WithConfigFile(cfgPath), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := gw.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Give the listener time to come up
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://localhost:18090/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("unexpected healthz body: %s", body)
	}

	// A blank username is rejected before any upstream call
	resp, err = http.Get("http://localhost:18090/api/followings")
	if err != nil {
		t.Fatalf("followings request failed: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("followings status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(string(body), "username") {
		t.Errorf("unexpected error body: %s", body)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := gw.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestGateway_ReloadSwapsAdapter(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  port: 18091
upstream:
  adapter: bearer
  bearer:
    token: test-token
`)

	gw, err := New(WithConfigFile(cfgPath), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := gw.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		gw.Shutdown(shutdownCtx)
	}()

	if got := gw.resolver.AdapterName(); got != "bearer" {
		t.Fatalf("adapter = %q, want bearer", got)
	}

	newContent := `
server:
  port: 18091
upstream:
  adapter: apikey
  apikey:
    base_url: https://graph.example.com
    key: test-key
`
	if err := os.WriteFile(cfgPath, []byte(newContent), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// Trigger the reload directly rather than waiting on the file watcher
	newCfg, err := gw.config.Load(context.Background())
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if err := gw.reload(newCfg); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if got := gw.resolver.AdapterName(); got != "apikey" {
		t.Errorf("adapter after reload = %q, want apikey", got)
	}
}

func TestBuildResolver_UnknownAdapter(t *testing.T) {
	cfg := &config.Config{}
	cfg.Upstream.Adapter = "carrier-pigeon"

	_, err := BuildResolver(cfg, testLogger())
	if err == nil {
		t.Fatal("expected error for unregistered adapter")
	}
	if !strings.Contains(err.Error(), "unknown upstream adapter") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuildResolver_APIKeySettings(t *testing.T) {
	cfg := &config.Config{}
	cfg.Upstream.Adapter = "apikey"
	cfg.Upstream.APIKey.BaseURL = "https://graph.example.com"
	cfg.Upstream.APIKey.Key = "test-key"

	resolver, err := BuildResolver(cfg, testLogger())
	if err != nil {
		t.Fatalf("BuildResolver failed: %v", err)
	}
	if got := resolver.AdapterName(); got != "apikey" {
		t.Errorf("adapter = %q, want apikey", got)
	}
}

func TestBuildStore_None(t *testing.T) {
	for _, typ := range []string{"", "none"} {
		cfg := &config.Config{}
		cfg.Storage.Type = typ

		store, err := buildStore(cfg)
		if err != nil {
			t.Fatalf("buildStore(%q) failed: %v", typ, err)
		}
		if store != nil {
			t.Errorf("buildStore(%q) = %v, want nil", typ, store)
		}
	}
}

func TestBuildStore_Memory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Type = "memory"

	store, err := buildStore(cfg)
	if err != nil {
		t.Fatalf("buildStore failed: %v", err)
	}
	if store == nil {
		t.Fatal("expected a store")
	}
	store.Close()
}

func TestBuildStore_SQLiteCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "audit.db")

	cfg := &config.Config{}
	cfg.Storage.Type = "sqlite"
	cfg.Storage.SQLite.Path = path

	store, err := buildStore(cfg)
	if err != nil {
		t.Fatalf("buildStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("parent directory not created: %v", err)
	}
}

func TestBuildStore_UnknownType(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Type = "postgres"

	_, err := buildStore(cfg)
	if err == nil {
		t.Fatal("expected error for unknown storage type")
	}
}
