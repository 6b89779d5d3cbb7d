package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/audit"
	"github.com/webgrade/webgrade/internal/history"
	"github.com/webgrade/webgrade/internal/jobs"
)

// ─── Pages ──────────────────────────────────────────────────────────────

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := indexFS.ReadFile("index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "index page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handleHealth reports liveness.
//
//	@Summary	Service health
//	@Tags		meta
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/api/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	requests, windowSeconds := s.env.RateLimit()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Version:        Version,
		AuthConfigured: len(s.env.APIKeys()) > 0,
		QueueSize:      s.orchestrator.QueueSize(),
		RateLimit: RateLimitConfig{
			Requests:      requests,
			WindowSeconds: windowSeconds,
		},
	})
}

// ─── Analyze ────────────────────────────────────────────────────────────

// handleAnalyze runs an audit inline, or queues it for the background
// worker when the request asks for heavy analysis.
//
//	@Summary	Audit a web page
//	@Tags		analyze
//	@Accept		json
//	@Produce	json
//	@Param		x-api-key	header		string			true	"API key"
//	@Param		request		body		AnalyzeRequest	true	"Audit request"
//	@Success	200			{object}	AnalyzeSyncResponse
//	@Success	202			{object}	AnalyzeQueuedResponse
//	@Failure	400			{object}	ErrorResponse
//	@Failure	401			{object}	ErrorResponse
//	@Failure	429			{object}	ErrorResponse
//	@Failure	502			{object}	ErrorResponse
//	@Failure	504			{object}	ErrorResponse
//	@Router		/api/analyze [post]
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if body.Mode != "" && body.Mode != audit.ModeBasic && body.Mode != audit.ModeFull {
		writeError(w, http.StatusBadRequest, "mode must be \"basic\" or \"full\"")
		return
	}
	if body.TimeoutSeconds != 0 &&
		(body.TimeoutSeconds < audit.MinTimeoutSeconds || body.TimeoutSeconds > audit.MaxTimeoutSeconds) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("timeout must be between %d and %d seconds",
				audit.MinTimeoutSeconds, audit.MaxTimeoutSeconds))
		return
	}

	safeURL, err := s.validator.ValidatePublicURL(r.Context(), body.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := audit.Request{
		URL:            safeURL,
		Mode:           body.Mode,
		TimeoutSeconds: body.TimeoutSeconds,
		UseLighthouse:  body.UseLighthouse,
	}.Normalized()

	if req.Mode == audit.ModeFull && req.UseLighthouse {
		job := s.orchestrator.Enqueue(req, s.identity(r))
		writeJSON(w, http.StatusAccepted, AnalyzeQueuedResponse{
			OK:        true,
			Queued:    true,
			JobID:     job.ID,
			StatusURL: jobs.StatusURL(job.ID),
			Message:   "Heavy analysis queued. Poll status_url for completion.",
		})
		return
	}

	start := time.Now()
	result := s.auditor.Audit(r.Context(), req)
	if result.Failed() {
		status, detail := mapAuditError(result.Error)
		writeError(w, status, detail)
		return
	}
	s.record(r.Context(), result)

	writeJSON(w, http.StatusOK, AnalyzeSyncResponse{
		OK:        true,
		Queued:    false,
		ElapsedMS: time.Since(start).Milliseconds(),
		Result:    result,
	})
}

// mapAuditError translates a pipeline failure tag into an HTTP status and
// client-facing detail.
func mapAuditError(tag string) (int, string) {
	switch tag {
	case "timeout":
		return http.StatusGatewayTimeout, "Request timed out"
	case "connection_error":
		return http.StatusBadGateway, "Could not connect to target URL"
	default:
		return http.StatusInternalServerError, "Analyzer error: " + tag
	}
}

// ─── Jobs ───────────────────────────────────────────────────────────────

// handleGetJob returns a job snapshot.
//
//	@Summary	Job status
//	@Tags		jobs
//	@Produce	json
//	@Param		x-api-key	header		string	true	"API key"
//	@Param		jobID		path		string	true	"Job ID"
//	@Success	200			{object}	JobResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/api/jobs/{jobID} [get]
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.orchestrator.Get(chi.URLParam(r, "jobID"))
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, JobResponse{OK: true, Job: job})
}

// handleJobEvents streams job lifecycle events over a WebSocket. The
// current snapshot is sent first; the connection closes after the
// terminal event.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, ok := s.orchestrator.Get(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(job); err != nil {
		return
	}

	events, ok := s.orchestrator.Events(jobID)
	if !ok {
		return
	}
	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			// Client went away; the worker keeps running regardless.
			return
		}
	}
}

// ─── History ────────────────────────────────────────────────────────────

// handleHistoryList lists recorded audits, newest first.
//
//	@Summary	Audit history
//	@Tags		history
//	@Produce	json
//	@Param		x-api-key	header		string	true	"API key"
//	@Param		url			query		string	false	"Filter by original URL"
//	@Param		limit		query		int		false	"Maximum entries (default 20)"
//	@Success	200			{object}	HistoryListResponse
//	@Failure	503			{object}	ErrorResponse
//	@Router		/api/history [get]
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "History is disabled")
		return
	}

	limit := history.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	entries, err := s.history.List(r.Context(), r.URL.Query().Get("url"), limit)
	if err != nil {
		s.logger.Error("list history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not read history")
		return
	}
	writeJSON(w, http.StatusOK, HistoryListResponse{OK: true, Audits: entries})
}

// handleHistoryDiff compares two recorded audits.
//
//	@Summary	Diff two audits
//	@Tags		history
//	@Produce	json
//	@Param		x-api-key	header		string	true	"API key"
//	@Param		base		query		string	true	"Base audit ID"
//	@Param		head		query		string	true	"Head audit ID"
//	@Success	200			{object}	HistoryDiffResponse
//	@Failure	400			{object}	ErrorResponse
//	@Failure	404			{object}	ErrorResponse
//	@Failure	503			{object}	ErrorResponse
//	@Router		/api/history/diff [get]
func (s *Server) handleHistoryDiff(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "History is disabled")
		return
	}

	base := r.URL.Query().Get("base")
	head := r.URL.Query().Get("head")
	if base == "" || head == "" {
		writeError(w, http.StatusBadRequest, "base and head query parameters are required")
		return
	}

	diff, err := s.history.DiffAudits(r.Context(), base, head)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Audit not found")
			return
		}
		s.logger.Error("diff history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not diff audits")
		return
	}
	writeJSON(w, http.StatusOK, HistoryDiffResponse{OK: true, Diff: diff})
}
