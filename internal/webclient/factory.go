package webclient

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Config selects and tunes a backend without importing its package.
type Config struct {
	// Backend is the registered backend name; empty means "nethttp".
	Backend string
}

// BackendConstructor builds a Client from config and logger.
type BackendConstructor func(cfg Config, logger *zap.Logger) (Client, error)

var (
	mu       sync.RWMutex
	registry = map[string]BackendConstructor{}
)

// RegisterBackend registers a named backend constructor. Names are
// lower-cased; re-registering a name overwrites the previous constructor.
func RegisterBackend(name string, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// New constructs the configured backend. It returns an error when the named
// backend has not been registered.
func New(cfg Config, logger *zap.Logger) (Client, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "nethttp"
	}

	mu.RLock()
	ctor, ok := registry[backend]
	mu.RUnlock()
	if !ok || ctor == nil {
		return nil, fmt.Errorf("webclient backend %q not registered: available backends=%v", backend, ListBackends())
	}

	client, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("construct webclient backend %q: %w", backend, err)
	}
	if client == nil {
		return nil, errors.New("webclient constructor returned nil")
	}
	return client, nil
}

// ListBackends returns the registered backend names.
func ListBackends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}
