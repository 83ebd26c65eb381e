// Package revision implements the per-section revision control loop:
// draft, double review, feedback validation, quality gating with rollback,
// and adaptive iteration budgeting.
package revision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/courseforge/courseforge/internal/review"
)

// ErrEmptyHistory reports best() or latest() on an empty ledger. Reaching
// it means a caller consulted history before iteration 0 completed, which
// is a contract violation, not a recoverable condition.
var ErrEmptyHistory = errors.New("revision: draft history is empty")

// Draft is one produced version of a section's content.
type Draft struct {
	SectionID string
	Iteration int
	Content   string
	WordCount int
}

// NewDraft builds a Draft, deriving the word count from the content.
func NewDraft(sectionID string, iteration int, content string) Draft {
	return Draft{
		SectionID: sectionID,
		Iteration: iteration,
		Content:   content,
		WordCount: len(strings.Fields(content)),
	}
}

// HistoryEntry records one completed iteration: the draft plus everything
// the reviewers said about it.
type HistoryEntry struct {
	Iteration     int
	Draft         Draft
	CombinedScore float64
	Overall       map[review.Role]float64
	Aspects       map[review.Role]map[string]float64
}

// CombinedScore sums the overall scores of the reviews that are present.
// A missing review contributes nothing here; the missing-review default
// applies only to the iteration policy, not to draft comparison.
func CombinedScore(results []review.Result) float64 {
	var sum float64
	for _, r := range results {
		sum += r.Overall
	}
	return sum
}

// History is the append-only draft ledger for one section. Entries are
// keyed by iteration index, strictly increasing and gapless from 0.
type History struct {
	entries []HistoryEntry
}

// Append adds an entry. The entry's iteration index must equal the number
// of entries already recorded.
func (h *History) Append(e HistoryEntry) error {
	if e.Iteration != len(h.entries) {
		return fmt.Errorf("revision: history append out of order: got iteration %d, want %d",
			e.Iteration, len(h.entries))
	}
	h.entries = append(h.entries, e)
	return nil
}

// Len reports the number of recorded iterations.
func (h *History) Len() int { return len(h.entries) }

// Best returns the entry with the highest combined score. Ties go to the
// earliest iteration.
func (h *History) Best() (HistoryEntry, error) {
	if len(h.entries) == 0 {
		return HistoryEntry{}, ErrEmptyHistory
	}
	best := h.entries[0]
	for _, e := range h.entries[1:] {
		if e.CombinedScore > best.CombinedScore {
			best = e
		}
	}
	return best, nil
}

// Latest returns the most recently appended entry.
func (h *History) Latest() (HistoryEntry, error) {
	if len(h.entries) == 0 {
		return HistoryEntry{}, ErrEmptyHistory
	}
	return h.entries[len(h.entries)-1], nil
}

// RecentScores returns the combined scores of the last up-to-n entries,
// oldest first.
func (h *History) RecentScores(n int) []float64 {
	start := len(h.entries) - n
	if start < 0 {
		start = 0
	}
	scores := make([]float64, 0, len(h.entries)-start)
	for _, e := range h.entries[start:] {
		scores = append(scores, e.CombinedScore)
	}
	return scores
}
