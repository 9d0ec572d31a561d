// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/tudescuento/mcp-server-go/streaminghttp"
)

// ErrMissingAPIKey is returned when TUDESCUENTO_API_KEY is unset or blank.
var ErrMissingAPIKey = errors.New("config: TUDESCUENTO_API_KEY is required")

type Config struct {
	Port          int    `env:"PORT,default=3000"`
	APIURL        string `env:"TUDESCUENTO_API_URL,default=https://api.tudescuento.com"`
	APIKey        string `env:"TUDESCUENTO_API_KEY"`
	ServerName    string `env:"MCP_SERVER_NAME,default=tudescuento-mcp-server"`
	ServerVersion string `env:"MCP_SERVER_VERSION,default=1.0.0"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`
	LogFormat     string `env:"LOG_FORMAT,default=json"`

	// CORSOriginsRaw is a comma separated allow-list; see CORSOrigins.
	CORSOriginsRaw string `env:"CORS_ORIGINS,default=*"`

	TransportRaw    string        `env:"MCP_TRANSPORT,default=batch"`
	SessionIdleTTL  time.Duration `env:"MCP_SESSION_IDLE_TTL,default=30m"`
	SSEKeepAlive    time.Duration `env:"MCP_SSE_KEEPALIVE,default=15s"`
	MaxBodyBytes    int64         `env:"MCP_MAX_BODY_BYTES,default=10485760"`
	MaxSessions     int           `env:"MCP_MAX_SESSIONS,default=0"`
	ResourcesDir    string        `env:"MCP_RESOURCES_DIR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	CRMTimeout  time.Duration `env:"CRM_TIMEOUT,default=30s"`
	CRMCacheTTL time.Duration `env:"CRM_CACHE_TTL,default=5m"`
	CRMCacheMax int           `env:"CRM_CACHE_SIZE,default=256"`

	RedisAddr      string `env:"REDIS_ADDR"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX,default=tudescuento:crm:"`

	// Transport is TransportRaw parsed by Load.
	Transport streaminghttp.Strategy
}

// Load decodes the environment and validates the result. It fails fast on a
// missing API key or unparseable values so the process exits before opening
// any listener.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: PORT %d out of range", cfg.Port)
	}

	for name, d := range map[string]time.Duration{
		"MCP_SESSION_IDLE_TTL": cfg.SessionIdleTTL,
		"CRM_TIMEOUT":          cfg.CRMTimeout,
		"CRM_CACHE_TTL":        cfg.CRMCacheTTL,
		"SHUTDOWN_TIMEOUT":     cfg.ShutdownTimeout,
	} {
		if d < 0 {
			return nil, fmt.Errorf("config: %s must not be negative, got %s", name, d)
		}
	}

	strategy, err := streaminghttp.ParseStrategy(cfg.TransportRaw)
	if err != nil {
		return nil, fmt.Errorf("config: MCP_TRANSPORT: %w", err)
	}
	cfg.Transport = strategy

	return &cfg, nil
}

// CORSOrigins splits CORS_ORIGINS into its entries. Blank entries are dropped.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOriginsRaw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
