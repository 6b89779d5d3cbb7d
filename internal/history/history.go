// Package history persists completed full-audit reports in SQLite so runs
// against the same URL can be listed and diffed later. Jobs and rate-limit
// state stay in memory; only the canonical report artifact is stored.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/audit"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when an audit id does not exist.
var ErrNotFound = errors.New("audit not found")

// DefaultListLimit caps List results when the caller does not set a limit.
const DefaultListLimit = 20

// Entry is one stored audit.
type Entry struct {
	ID        string             `json:"id"`
	URL       string             `json:"url"`
	FinalURL  string             `json:"final_url,omitempty"`
	FetchedAt string             `json:"fetched_at"`
	Overall   float64            `json:"overall"`
	Scores    map[string]float64 `json:"scores"`
	Report    *audit.Result      `json:"report,omitempty"`
}

// Store is the SQLite-backed audit history.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the history database at path and applies the
// schema. Use ":memory:" in tests.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	logger.Info("history store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Record stores one completed full audit and returns its id. Basic-mode
// and failed results are skipped silently: only scored reports are worth
// keeping.
func (s *Store) Record(ctx context.Context, result *audit.Result) (string, error) {
	if result == nil || result.Failed() || result.Mode != audit.ModeFull || result.OverallScore == nil {
		return "", nil
	}

	report, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audits (id, url, final_url, fetched_at, overall,
			performance, security, seo, accessibility, best_practices, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, result.URL, result.FinalURL, result.Timestamp, *result.OverallScore,
		criterionScore(result, audit.CriterionPerformance),
		criterionScore(result, audit.CriterionSecurity),
		criterionScore(result, audit.CriterionSEO),
		criterionScore(result, audit.CriterionAccessibility),
		criterionScore(result, audit.CriterionBestPractices),
		string(report),
	)
	if err != nil {
		return "", fmt.Errorf("insert audit: %w", err)
	}

	s.logger.Debug("audit recorded",
		zap.String("id", id),
		zap.String("url", result.URL),
		zap.Float64("overall", *result.OverallScore))
	return id, nil
}

func criterionScore(result *audit.Result, name string) float64 {
	if cr, ok := result.Criteria[name]; ok {
		return cr.Score
	}
	return 0
}

// List returns stored audits, newest first. An empty url matches every
// URL; limit <= 0 uses DefaultListLimit. Reports are not hydrated.
func (s *Store) List(ctx context.Context, url string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, url, final_url, fetched_at, overall,
			performance, security, seo, accessibility, best_practices
		FROM audits`
	args := []any{}
	if url != "" {
		query += " WHERE url = ?"
		args = append(args, url)
	}
	query += " ORDER BY fetched_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns one stored audit with its full report, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url, final_url, fetched_at, overall,
			performance, security, seo, accessibility, best_practices, report
		FROM audits WHERE id = ?`, id)

	var entry Entry
	var report string
	scores := make([]float64, 5)
	err := row.Scan(&entry.ID, &entry.URL, &entry.FinalURL, &entry.FetchedAt,
		&entry.Overall, &scores[0], &scores[1], &scores[2], &scores[3], &scores[4],
		&report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audit %s: %w", id, err)
	}

	entry.Scores = scoresMap(scores)
	entry.Report = &audit.Result{}
	if err := json.Unmarshal([]byte(report), entry.Report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	scores := make([]float64, 5)
	err := row.Scan(&entry.ID, &entry.URL, &entry.FinalURL, &entry.FetchedAt,
		&entry.Overall, &scores[0], &scores[1], &scores[2], &scores[3], &scores[4])
	if err != nil {
		return Entry{}, fmt.Errorf("scan audit row: %w", err)
	}
	entry.Scores = scoresMap(scores)
	return entry, nil
}

func scoresMap(scores []float64) map[string]float64 {
	return map[string]float64{
		audit.CriterionPerformance:   scores[0],
		audit.CriterionSecurity:      scores[1],
		audit.CriterionSEO:           scores[2],
		audit.CriterionAccessibility: scores[3],
		audit.CriterionBestPractices: scores[4],
	}
}
