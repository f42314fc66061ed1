package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/havenstay/authsession"
	"github.com/havenstay/authsession/identity"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Store.Backend)
	}
	if cfg.Identity.Mode != IdentityMock || cfg.Identity.Latency != time.Second {
		t.Fatalf("unexpected identity defaults %+v", cfg.Identity)
	}
	if cfg.Manager.Concurrency.Default != authsession.PolicyLastWriteWins {
		t.Fatalf("unexpected default policy %s", cfg.Manager.Concurrency.Default)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
manager:
  session:
    expire_on_deadline: false
  concurrency:
    default: reject
    overrides:
      sign_in: queue
  notifications:
    async: true
    buffer_size: 8
store:
  backend: sqlite
  sqlite:
    path: /tmp/sessions.db
identity:
  mode: http
  base_url: https://id.example.com
  timeout: 3s
  social:
    google:
      client_id: abc
      redirect_url: https://app.example.com/oauth/callback
server:
  port: 9090
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Manager.Session.ExpireOnDeadline {
		t.Fatal("expire_on_deadline should be false")
	}
	if cfg.Manager.Concurrency.Default != authsession.PolicyReject {
		t.Fatalf("default policy = %s", cfg.Manager.Concurrency.Default)
	}
	if cfg.Manager.Concurrency.Overrides[authsession.OpSignIn] != authsession.PolicyQueue {
		t.Fatalf("sign_in override = %s", cfg.Manager.Concurrency.Overrides[authsession.OpSignIn])
	}
	if cfg.Manager.Notifications.BufferSize != 8 {
		t.Fatalf("buffer size = %d", cfg.Manager.Notifications.BufferSize)
	}
	if !cfg.Manager.Metrics.Enabled {
		t.Fatal("unset fields should keep their defaults")
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.SQLite.Path != "/tmp/sessions.db" {
		t.Fatalf("unexpected store %+v", cfg.Store)
	}
	if cfg.Identity.Timeout != 3*time.Second || cfg.Identity.BaseURL != "https://id.example.com" {
		t.Fatalf("unexpected identity %+v", cfg.Identity)
	}
	if cfg.Identity.Social["google"].ClientID != "abc" {
		t.Fatalf("unexpected social %+v", cfg.Identity.Social)
	}
	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr = %s", cfg.Server.Addr())
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, "store:\n  backend: file\n")
	t.Setenv("AUTHSESSION_STORE_BACKEND", "redis")
	t.Setenv("AUTHSESSION_REDIS_ADDR", "cache:6379")
	t.Setenv("AUTHSESSION_SERVER_PORT", "7000")
	t.Setenv("AUTHSESSION_IDENTITY_LATENCY", "250ms")
	t.Setenv("AUTHSESSION_CONCURRENCY_DEFAULT", "queue")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != BackendRedis || cfg.Store.Redis.Addr != "cache:6379" {
		t.Fatalf("unexpected store %+v", cfg.Store)
	}
	if cfg.Server.Port != 7000 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Identity.Latency != 250*time.Millisecond {
		t.Fatalf("latency = %s", cfg.Identity.Latency)
	}
	if cfg.Manager.Concurrency.Default != authsession.PolicyQueue {
		t.Fatalf("policy = %s", cfg.Manager.Concurrency.Default)
	}
}

func TestEnvOverrideParseErrors(t *testing.T) {
	t.Setenv("AUTHSESSION_SERVER_PORT", "eighty")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected SERVER_PORT error, got %v", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "etcd"
	cfg.Identity.Mode = "ldap"
	cfg.Identity.Social = map[string]identity.SocialConfig{"myspace": {}}
	cfg.Server.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"store.backend", "identity.mode", "identity.social.myspace", "server.port"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "manager:\n  concurrency:\n    default: sometimes\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parsing config file") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
