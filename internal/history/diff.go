package history

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/webgrade/webgrade/internal/audit"
)

// ScoreDelta is the movement of one criterion between two stored audits.
type ScoreDelta struct {
	Base  float64 `json:"base"`
	Head  float64 `json:"head"`
	Delta float64 `json:"delta"`
}

// NoteChunk is one added or removed fragment of the criteria notes.
type NoteChunk struct {
	Type    string `json:"type"` // "added" | "removed"
	Content string `json:"content"`
}

// Diff compares two stored audits: per-criterion and overall score deltas
// plus note-level text chunks.
type Diff struct {
	BaseID     string                `json:"base_id"`
	HeadID     string                `json:"head_id"`
	URL        string                `json:"url"`
	Overall    ScoreDelta            `json:"overall"`
	Criteria   map[string]ScoreDelta `json:"criteria"`
	NoteChunks []NoteChunk           `json:"note_chunks"`
}

// DiffAudits computes the structural diff between two stored audits.
// Unknown ids surface as ErrNotFound.
func (s *Store) DiffAudits(ctx context.Context, baseID, headID string) (*Diff, error) {
	base, err := s.Get(ctx, baseID)
	if err != nil {
		return nil, err
	}
	head, err := s.Get(ctx, headID)
	if err != nil {
		return nil, err
	}

	diff := &Diff{
		BaseID: base.ID,
		HeadID: head.ID,
		URL:    head.URL,
		Overall: ScoreDelta{
			Base:  base.Overall,
			Head:  head.Overall,
			Delta: round2(head.Overall - base.Overall),
		},
		Criteria:   map[string]ScoreDelta{},
		NoteChunks: noteChunks(base.Report, head.Report),
	}

	for name, baseScore := range base.Scores {
		headScore := head.Scores[name]
		diff.Criteria[name] = ScoreDelta{
			Base:  baseScore,
			Head:  headScore,
			Delta: round2(headScore - baseScore),
		}
	}

	return diff, nil
}

// noteChunks diffs the flattened criteria notes of two reports with
// diffmatchpatch, keeping only added/removed fragments.
func noteChunks(base, head *audit.Result) []NoteChunk {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(flattenNotes(base), flattenNotes(head), true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	chunks := []NoteChunk{}
	for _, d := range diffs {
		var chunkType string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			chunkType = "added"
		case diffmatchpatch.DiffDelete:
			chunkType = "removed"
		default:
			continue
		}
		if text := strings.TrimSpace(d.Text); text != "" {
			chunks = append(chunks, NoteChunk{Type: chunkType, Content: text})
		}
	}
	return chunks
}

// flattenNotes renders every criterion note as one line, criterion order
// fixed so diffs are stable across runs.
func flattenNotes(result *audit.Result) string {
	if result == nil {
		return ""
	}
	names := make([]string, 0, len(result.Criteria))
	for name := range result.Criteria {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		for _, note := range result.Criteria[name].Notes {
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(note)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
