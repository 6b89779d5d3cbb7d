package history

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/audit"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func fullResult(t *testing.T, url, timestamp string, overall float64, notes map[string][]string) *audit.Result {
	t.Helper()
	criteria := map[string]audit.CriterionResult{}
	for _, name := range []string{
		audit.CriterionPerformance, audit.CriterionSecurity, audit.CriterionSEO,
		audit.CriterionAccessibility, audit.CriterionBestPractices,
	} {
		criteria[name] = audit.CriterionResult{
			Score:  overall,
			Method: audit.MethodLocalHeuristics,
			Notes:  notes[name],
		}
	}
	return &audit.Result{
		Mode:         audit.ModeFull,
		Timestamp:    timestamp,
		URL:          url,
		FinalURL:     url,
		Status:       200,
		Criteria:     criteria,
		Weights:      audit.DefaultWeights(),
		OverallScore: &overall,
	}
}

func mustRecord(t *testing.T, store *Store, result *audit.Result) string {
	t.Helper()
	id, err := store.Record(context.Background(), result)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id == "" {
		t.Fatal("Record returned empty id for a full result")
	}
	return id
}

func TestStore_RecordAndGet(t *testing.T) {
	store := openTestStore(t)

	result := fullResult(t, "https://example.com", "2026-04-01T10:00:00Z", 82.5, nil)
	id := mustRecord(t, store, result)

	entry, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.URL != "https://example.com" || entry.Overall != 82.5 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Scores[audit.CriterionSecurity] != 82.5 {
		t.Errorf("security score = %v, want 82.5", entry.Scores[audit.CriterionSecurity])
	}
	if entry.Report == nil || entry.Report.URL != "https://example.com" {
		t.Errorf("hydrated report = %+v", entry.Report)
	}
}

func TestStore_RecordSkipsNonRecordableResults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		result *audit.Result
	}{
		{name: "nil", result: nil},
		{name: "failed", result: &audit.Result{Mode: audit.ModeFull, URL: "x", Error: "timeout"}},
		{name: "basic mode", result: &audit.Result{Mode: audit.ModeBasic, URL: "x"}},
	}
	for _, tc := range cases {
		id, err := store.Record(ctx, tc.result)
		if err != nil {
			t.Errorf("%s: Record error: %v", tc.name, err)
		}
		if id != "" {
			t.Errorf("%s: Record stored id %q, want skip", tc.name, id)
		}
	}

	entries, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("store holds %d entries, want 0", len(entries))
	}
}

func TestStore_ListNewestFirstAndFiltered(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	mustRecord(t, store, fullResult(t, "https://a.example", "2026-04-01T10:00:00Z", 50, nil))
	mustRecord(t, store, fullResult(t, "https://a.example", "2026-04-01T11:00:00Z", 60, nil))
	mustRecord(t, store, fullResult(t, "https://b.example", "2026-04-01T12:00:00Z", 70, nil))

	all, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(all))
	}
	if all[0].Overall != 70 || all[2].Overall != 50 {
		t.Errorf("List not newest first: %v, %v, %v", all[0].Overall, all[1].Overall, all[2].Overall)
	}

	filtered, err := store.List(ctx, "https://a.example", 0)
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("filtered List returned %d entries, want 2", len(filtered))
	}

	limited, err := store.List(ctx, "", 1)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited List returned %d entries, want 1", len(limited))
	}
}

func TestStore_GetUnknownID(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}
}

func TestStore_DiffAudits(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	baseID := mustRecord(t, store, fullResult(t, "https://example.com", "2026-04-01T10:00:00Z", 50,
		map[string][]string{audit.CriterionSecurity: {"Missing security header: content-security-policy"}}))
	headID := mustRecord(t, store, fullResult(t, "https://example.com", "2026-04-01T11:00:00Z", 80,
		map[string][]string{audit.CriterionSEO: {"Missing meta description"}}))

	diff, err := store.DiffAudits(ctx, baseID, headID)
	if err != nil {
		t.Fatalf("DiffAudits: %v", err)
	}

	if diff.Overall.Delta != 30 {
		t.Errorf("overall delta = %v, want 30", diff.Overall.Delta)
	}
	if got := diff.Criteria[audit.CriterionSecurity].Delta; got != 30 {
		t.Errorf("security delta = %v, want 30", got)
	}
	if len(diff.NoteChunks) == 0 {
		t.Fatal("expected note chunks for changed notes")
	}

	var sawAdded, sawRemoved bool
	for _, chunk := range diff.NoteChunks {
		switch chunk.Type {
		case "added":
			if strings.Contains(chunk.Content, "meta description") {
				sawAdded = true
			}
		case "removed":
			if strings.Contains(chunk.Content, "content-security-policy") {
				sawRemoved = true
			}
		}
	}
	if !sawAdded || !sawRemoved {
		t.Errorf("note chunks missing expected fragments: %+v", diff.NoteChunks)
	}
}

func TestStore_DiffAuditsUnknownID(t *testing.T) {
	store := openTestStore(t)

	id := mustRecord(t, store, fullResult(t, "https://example.com", "2026-04-01T10:00:00Z", 50, nil))

	if _, err := store.DiffAudits(context.Background(), id, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DiffAudits error = %v, want ErrNotFound", err)
	}
}
