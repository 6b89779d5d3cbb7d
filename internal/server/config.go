package server

import (
	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/config"
	"github.com/webgrade/webgrade/internal/history"
)

// Version is reported by /api/health and the swagger document.
const Version = "2.3.0"

// Config assembles a Server. Only ListenAddr is commonly set; every other
// field has a production default and exists mainly so tests can inject
// doubles.
type Config struct {
	// ListenAddr is the HTTP listen address; empty means the configured
	// WEBGRADE_LISTEN_ADDR (default :8787).
	ListenAddr string

	// Env is the environment view; nil means a fresh config.New().
	Env *config.Env

	// Logger is the server logger; nil means no logging.
	Logger *zap.Logger

	// Validator guards target URLs; nil means the production gate.
	Validator Validator

	// Auditor runs the pipeline; nil means a Runner over the configured
	// webclient backend.
	Auditor Auditor

	// History is the audit store; nil means opening the configured
	// WEBGRADE_HISTORY_PATH (empty path disables history).
	History *history.Store
}
