// Package audit computes the multi-criterion quality score for a fetched
// page. The five criterion scorers and the aggregator are pure and total:
// they never fail, and every score lands in [0,100].
package audit

// Audit modes.
const (
	ModeBasic = "basic"
	ModeFull  = "full"
)

// MethodLocalHeuristics tags results produced by the built-in scorers.
const MethodLocalHeuristics = "local_heuristics"

// Criterion names, also the keys of the weights map.
const (
	CriterionPerformance   = "performance"
	CriterionSecurity      = "security"
	CriterionSEO           = "seo"
	CriterionAccessibility = "accessibility"
	CriterionBestPractices = "best_practices"
)

// Request describes one audit invocation.
type Request struct {
	URL            string `json:"url"`
	Mode           string `json:"mode"`
	TimeoutSeconds int    `json:"timeout"`
	UseLighthouse  bool   `json:"use_lighthouse"`
}

// CriterionResult is the outcome of one criterion scorer.
type CriterionResult struct {
	Score   float64        `json:"score"`
	Method  string         `json:"method"`
	Details map[string]any `json:"details"`
	Notes   []string       `json:"notes"`
}

// Result is the canonical audit artifact. Error is mutually exclusive with
// the success fields; url, timestamp and mode are always set.
type Result struct {
	Mode          string  `json:"mode"`
	Timestamp     string  `json:"timestamp"`
	URL           string  `json:"url"`
	FinalURL      string  `json:"final_url,omitempty"`
	Status        int     `json:"status,omitempty"`
	ResponseTimeS float64 `json:"response_time_s,omitempty"`

	Title           string `json:"title,omitempty"`
	ImageCount      int    `json:"image_count"`
	LinkCount       int    `json:"link_count"`
	MobileFriendly  bool   `json:"mobile_friendly"`
	DeclaredCharset string `json:"declared_charset,omitempty"`

	Criteria     map[string]CriterionResult `json:"criteria,omitempty"`
	Weights      map[string]int             `json:"weights,omitempty"`
	OverallScore *float64                   `json:"overall_score,omitempty"`

	Error string `json:"error,omitempty"`
}

// Failed reports whether the audit ended with an error instead of scores.
func (r *Result) Failed() bool {
	return r != nil && r.Error != ""
}
