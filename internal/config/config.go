// Package config loads gateway configuration from an optional YAML file and
// the environment, with env-var substitution for upstream credentials.
package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the gateway's environment variables. A double
// underscore separates nesting levels: FGW_SERVER__PORT -> server.port.
const envPrefix = "FGW_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Cache     CacheConfig     `koanf:"cache"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type UpstreamConfig struct {
	// Adapter selects the upstream convention: "bearer" or "apikey".
	Adapter string `koanf:"adapter"`

	// Timeout is the per-call deadline for each upstream exchange.
	Timeout time.Duration `koanf:"timeout"`

	// PageSize hints the relations page size where the convention takes one.
	PageSize int `koanf:"page_size"`

	// GuardPrivateAddresses rejects upstream connections to loopback and
	// private ranges. Off by default so local upstreams keep working.
	GuardPrivateAddresses bool `koanf:"guard_private_addresses"`

	Retry  RetryConfig  `koanf:"retry"`
	Bearer BearerConfig `koanf:"bearer"`
	APIKey APIKeyConfig `koanf:"apikey"`
}

// RetryConfig bounds retries of transport faults and 5xx statuses.
// MaxAttempts counts additional attempts beyond the first call; the default
// of zero keeps the single-attempt behavior.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	MaxInterval time.Duration `koanf:"max_interval"`
}

type BearerConfig struct {
	BaseURL string `koanf:"base_url"`
	Token   string `koanf:"token"`
}

type APIKeyConfig struct {
	BaseURL string `koanf:"base_url"`
	Key     string `koanf:"key"`
	Header  string `koanf:"header"`
}

// CacheConfig controls the optional identity cache. A zero TTL disables it;
// relations are never cached regardless.
type CacheConfig struct {
	IdentityTTL time.Duration `koanf:"identity_ttl"`
	Size        int           `koanf:"size"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // none, memory, sqlite
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Tracing bool `koanf:"tracing"`
	Metrics bool `koanf:"metrics"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configuration from the YAML file at path (a missing file is
// fine) and overlays environment variables. Credential fields support ${VAR}
// substitution so secrets stay out of the config file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	// Environment variables override file config
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Upstream.Bearer.Token = substituteEnvVars(cfg.Upstream.Bearer.Token)
	cfg.Upstream.APIKey.Key = substituteEnvVars(cfg.Upstream.APIKey.Key)

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":                 8080,
		"server.request_timeout":      "30s",
		"upstream.adapter":            "bearer",
		"upstream.timeout":            "10s",
		"upstream.page_size":          200,
		"upstream.retry.max_interval": "2s",
		"upstream.bearer.base_url":    "https://api.twitter.com/1.1",
		"upstream.apikey.header":      "X-API-Key",
		"cache.size":                  1024,
		"storage.type":                "none",
		"storage.sqlite.path":         "./data/gateway.db",
	}

	for key, v := range defaults {
		if !k.Exists(key) {
			k.Set(key, v)
		}
	}
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
