// Package config reads webgrade's environment configuration.
//
// All settings come from WEBGRADE_* environment variables (a .env file is
// loaded by the CLI before this package is consulted). Numeric settings are
// forgiving: a missing or malformed value falls back to its default, and a
// value below the allowed minimum is floored at the minimum. Auth and
// rate-limit settings are re-read on every request so operators can rotate
// keys or retune limits without a restart.
package config

import (
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix namespaces every environment variable.
	EnvPrefix = "WEBGRADE"

	DefaultRateLimitRequests      = 20
	DefaultRateLimitWindowSeconds = 60
	DefaultTimeoutSeconds         = 10
	DefaultListenAddr             = ":8787"
	DefaultLogLevel               = "info"
	DefaultHistoryPath            = "webgrade.db"
	DefaultClientBackend          = "nethttp"
)

// Env is a live view over the process environment.
type Env struct {
	v *viper.Viper
}

// New binds a viper instance to the WEBGRADE_* environment.
func New() *Env {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Env{v: v}
}

// Int reads an integer setting with safe-fallback semantics: empty or
// malformed values return def, values below minimum return minimum.
func (e *Env) Int(key string, def, minimum int) int {
	raw := strings.TrimSpace(e.v.GetString(key))
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if value < minimum {
		return minimum
	}
	return value
}

// String reads a string setting, returning def when unset or blank.
func (e *Env) String(key, def string) string {
	raw := strings.TrimSpace(e.v.GetString(key))
	if raw == "" {
		return def
	}
	return raw
}

// APIKeys returns the union of WEBGRADE_API_KEY and WEBGRADE_API_KEYS
// (comma-separated), trimmed, with empties removed. An empty set means auth
// is not configured and the API must refuse to serve analyses.
func (e *Env) APIKeys() map[string]struct{} {
	keys := make(map[string]struct{})
	for _, source := range []string{e.v.GetString("api_key"), e.v.GetString("api_keys")} {
		if source == "" {
			continue
		}
		for _, item := range strings.Split(source, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				keys[trimmed] = struct{}{}
			}
		}
	}
	return keys
}

// RateLimit returns the per-identity request budget and window.
func (e *Env) RateLimit() (requests, windowSeconds int) {
	requests = e.Int("rate_limit_requests", DefaultRateLimitRequests, 1)
	windowSeconds = e.Int("rate_limit_window_seconds", DefaultRateLimitWindowSeconds, 1)
	return requests, windowSeconds
}

// ListenAddr returns the HTTP listen address for the API server.
func (e *Env) ListenAddr() string {
	return e.String("listen_addr", DefaultListenAddr)
}

// LogLevel returns the zap level name.
func (e *Env) LogLevel() string {
	return e.String("log_level", DefaultLogLevel)
}

// HistoryPath returns the SQLite path for the audit history store.
// An explicit empty value ("-") disables history.
func (e *Env) HistoryPath() string {
	path := e.String("history_path", DefaultHistoryPath)
	if path == "-" {
		return ""
	}
	return path
}

// ClientBackend names the registered webclient backend to fetch with.
func (e *Env) ClientBackend() string {
	return e.String("client_backend", DefaultClientBackend)
}
