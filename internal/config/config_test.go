package config

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/tudescuento/mcp-server-go/streaminghttp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TUDESCUENTO_API_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want, got := 3000, cfg.Port; want != got {
		t.Fatalf("Port: want %d got %d", want, got)
	}
	if want, got := streaminghttp.StrategyBatch, cfg.Transport; want != got {
		t.Fatalf("Transport: want %q got %q", want, got)
	}
	if want, got := 30*time.Minute, cfg.SessionIdleTTL; want != got {
		t.Fatalf("SessionIdleTTL: want %v got %v", want, got)
	}
	if want, got := int64(10485760), cfg.MaxBodyBytes; want != got {
		t.Fatalf("MaxBodyBytes: want %d got %d", want, got)
	}
	if want, got := "https://api.tudescuento.com", cfg.APIURL; want != got {
		t.Fatalf("APIURL: want %q got %q", want, got)
	}
	if diff := cmp.Diff([]string{"*"}, cfg.CORSOrigins()); diff != "" {
		t.Fatalf("CORSOrigins (-want +got):\n%s", diff)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TUDESCUENTO_API_KEY", "secret")
	t.Setenv("PORT", "8080")
	t.Setenv("MCP_TRANSPORT", "SSE")
	t.Setenv("MCP_SSE_KEEPALIVE", "5s")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want, got := ":8080", cfg.Addr(); want != got {
		t.Fatalf("Addr: want %q got %q", want, got)
	}
	if want, got := streaminghttp.StrategySSE, cfg.Transport; want != got {
		t.Fatalf("Transport: want %q got %q", want, got)
	}
	if want, got := 5*time.Second, cfg.SSEKeepAlive; want != got {
		t.Fatalf("SSEKeepAlive: want %v got %v", want, got)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.CORSOrigins()); diff != "" {
		t.Fatalf("CORSOrigins (-want +got):\n%s", diff)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("TUDESCUENTO_API_KEY", "   ")

	if _, err := Load(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("want ErrMissingAPIKey, got %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, env := range map[string][2]string{
		"transport":         {"MCP_TRANSPORT", "websocket"},
		"duration":          {"CRM_TIMEOUT", "soon"},
		"idle ttl":          {"MCP_SESSION_IDLE_TTL", "junk"},
		"negative duration": {"SHUTDOWN_TIMEOUT", "-5s"},
		"integer":           {"MCP_MAX_SESSIONS", "many"},
		"port":              {"PORT", "70000"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Setenv("TUDESCUENTO_API_KEY", "secret")
			t.Setenv(env[0], env[1])
			if _, err := Load(); err == nil {
				t.Fatalf("want error for %s=%s", env[0], env[1])
			}
		})
	}
}
