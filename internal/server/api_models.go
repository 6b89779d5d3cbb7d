package server

import (
	"github.com/webgrade/webgrade/internal/audit"
	"github.com/webgrade/webgrade/internal/history"
	"github.com/webgrade/webgrade/internal/jobs"
)

// AnalyzeRequest is the payload for POST /api/analyze.
type AnalyzeRequest struct {
	URL            string `json:"url" example:"https://example.com"`
	Mode           string `json:"mode,omitempty" example:"full"`
	TimeoutSeconds int    `json:"timeout,omitempty" example:"10"`
	UseLighthouse  bool   `json:"use_lighthouse,omitempty" example:"true"`
}

// AnalyzeSyncResponse wraps an audit that ran inline.
type AnalyzeSyncResponse struct {
	OK        bool          `json:"ok" example:"true"`
	Queued    bool          `json:"queued" example:"false"`
	ElapsedMS int64         `json:"elapsed_ms" example:"412"`
	Result    *audit.Result `json:"result"`
}

// AnalyzeQueuedResponse acknowledges a heavy audit handed to the worker.
type AnalyzeQueuedResponse struct {
	OK        bool   `json:"ok" example:"true"`
	Queued    bool   `json:"queued" example:"true"`
	JobID     string `json:"job_id" example:"8f14e45f-ea8a-4b21-9f0a-2d1a7c9a7e31"`
	StatusURL string `json:"status_url" example:"/api/jobs/8f14e45f-ea8a-4b21-9f0a-2d1a7c9a7e31"`
	Message   string `json:"message" example:"Heavy analysis queued. Poll status_url for completion."`
}

// JobResponse wraps a job snapshot.
type JobResponse struct {
	OK  bool      `json:"ok" example:"true"`
	Job *jobs.Job `json:"job"`
}

// HealthResponse reports liveness plus the knobs a client cares about.
type HealthResponse struct {
	Status         string          `json:"status" example:"ok"`
	Version        string          `json:"version" example:"2.3.0"`
	AuthConfigured bool            `json:"auth_configured" example:"true"`
	QueueSize      int             `json:"queue_size" example:"0"`
	RateLimit      RateLimitConfig `json:"rate_limit"`
}

// RateLimitConfig is the effective fixed-window budget.
type RateLimitConfig struct {
	Requests      int `json:"requests" example:"20"`
	WindowSeconds int `json:"window_seconds" example:"60"`
}

// HistoryListResponse wraps a page of recorded audits.
type HistoryListResponse struct {
	OK     bool            `json:"ok" example:"true"`
	Audits []history.Entry `json:"audits"`
}

// HistoryDiffResponse wraps a comparison between two recorded audits.
type HistoryDiffResponse struct {
	OK   bool          `json:"ok" example:"true"`
	Diff *history.Diff `json:"diff"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"Invalid API key"`
}
