package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/page"
	"github.com/webgrade/webgrade/internal/urlguard"
	"github.com/webgrade/webgrade/internal/webclient"
)

// Timeout bounds for one audit, in seconds.
const (
	MinTimeoutSeconds     = 2
	MaxTimeoutSeconds     = 60
	DefaultTimeoutSeconds = 10
)

// Normalized returns a copy with mode and timeout forced into their valid
// ranges: unknown modes become full, out-of-range timeouts are clamped and
// a zero timeout gets the default.
func (r Request) Normalized() Request {
	if r.Mode != ModeBasic {
		r.Mode = ModeFull
	}
	switch {
	case r.TimeoutSeconds == 0:
		r.TimeoutSeconds = DefaultTimeoutSeconds
	case r.TimeoutSeconds < MinTimeoutSeconds:
		r.TimeoutSeconds = MinTimeoutSeconds
	case r.TimeoutSeconds > MaxTimeoutSeconds:
		r.TimeoutSeconds = MaxTimeoutSeconds
	}
	return r
}

// scorers maps criterion names to their scoring functions. All five are
// pure and total.
var scorers = map[string]func(*webclient.FetchResult, page.Document) CriterionResult{
	CriterionPerformance:   ScorePerformance,
	CriterionSecurity:      ScoreSecurity,
	CriterionSEO:           ScoreSEO,
	CriterionAccessibility: ScoreAccessibility,
	CriterionBestPractices: ScoreBestPractices,
}

// Runner executes the audit pipeline: gate, fetch, parse, score. It is
// stateless and safe for concurrent use.
type Runner struct {
	gate   *urlguard.Gate
	client webclient.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewRunner builds a Runner. A nil logger means no logging.
func NewRunner(gate *urlguard.Gate, client webclient.Client, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{gate: gate, client: client, logger: logger, now: time.Now}
}

// Run validates the URL and audits it. A validation failure becomes a
// failure result rather than an error, so batch callers can keep going.
func (r *Runner) Run(ctx context.Context, req Request) *Result {
	req = req.Normalized()

	safeURL, err := r.gate.ValidatePublicURL(ctx, req.URL)
	if err != nil {
		r.logger.Warn("url rejected", zap.String("url", req.URL), zap.Error(err))
		return r.failure(req, err.Error())
	}
	req.URL = safeURL
	return r.Audit(ctx, req)
}

// Audit fetches and scores an already-validated URL. Fetch failures are
// converted into the result's error field, keyed by their kind; scoring
// itself cannot fail.
func (r *Runner) Audit(ctx context.Context, req Request) *Result {
	req = req.Normalized()

	result := &Result{
		Mode:      req.Mode,
		Timestamp: r.now().UTC().Format(time.RFC3339),
		URL:       req.URL,
	}

	fetched, err := r.client.Fetch(ctx, req.URL, time.Duration(req.TimeoutSeconds)*time.Second)
	if err != nil {
		result.Error = fetchErrorTag(err)
		r.logger.Warn("audit fetch failed",
			zap.String("url", req.URL),
			zap.String("error", result.Error))
		return result
	}

	doc := page.Parse(fetched.Body)
	facts := page.Extract(doc)

	result.FinalURL = fetched.FinalURL
	result.Status = fetched.StatusCode
	result.ResponseTimeS = round2(fetched.ElapsedSeconds)
	result.Title = facts.Title
	result.ImageCount = facts.ImageCount
	result.LinkCount = facts.LinkCount
	result.MobileFriendly = facts.MobileFriendly
	result.DeclaredCharset = facts.DeclaredCharset

	if req.Mode == ModeBasic {
		return result
	}

	criteria := make(map[string]CriterionResult, len(scorers))
	scores := make(map[string]float64, len(scorers))
	for name, score := range scorers {
		cr := score(fetched, doc)
		criteria[name] = cr
		scores[name] = cr.Score
	}

	weights := DefaultWeights()
	overall := OverallScore(scores, weights)

	result.Criteria = criteria
	result.Weights = weights
	result.OverallScore = &overall

	r.logger.Info("audit completed",
		zap.String("url", req.URL),
		zap.String("mode", req.Mode),
		zap.Float64("overall", overall))

	return result
}

func (r *Runner) failure(req Request, message string) *Result {
	return &Result{
		Mode:      req.Mode,
		Timestamp: r.now().UTC().Format(time.RFC3339),
		URL:       req.URL,
		Error:     message,
	}
}

// fetchErrorTag maps a fetch failure onto the result error taxonomy:
// "timeout", "connection_error", or the underlying message.
func fetchErrorTag(err error) string {
	switch webclient.KindOf(err) {
	case webclient.KindTimeout:
		return "timeout"
	case webclient.KindConnection:
		return "connection_error"
	default:
		return err.Error()
	}
}
