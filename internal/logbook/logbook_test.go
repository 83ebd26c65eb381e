package logbook

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogbook(t *testing.T) *Logbook {
	t.Helper()
	book, err := New(filepath.Join(t.TempDir(), "journey.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	return book
}

func TestJourneyEventsAreTagged(t *testing.T) {
	book := newTestLogbook(t)
	book.RunStarted(3, 4)
	book.Iteration("01-overview", 0, 2, 12.5)
	book.SectionRolledBack("01-overview", 0, 22, 14)
	book.SectionForceApproved("02-deep-dive", 2)
	book.RunFailed(errors.New("model unavailable"))

	lines := book.Tail(10)
	if len(lines) != 5 {
		t.Fatalf("len(lines) = %d, want 5", len(lines))
	}
	wants := []string{
		"INFO  run_started: week 3, 4 sections",
		"INFO  iteration: section 01-overview 0/2, combined score 12.5",
		"WARN  rollback: section 01-overview restored to iteration 0 draft (score fell 22.0 -> 14.0)",
		"WARN  force_approved: section 02-deep-dive kept after 2 iteration(s)",
		"ERROR run_failed: model unavailable",
	}
	for i, want := range wants {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d = %q, missing %q", i, lines[i], want)
		}
	}
}

func TestTailReturnsRecentLines(t *testing.T) {
	book := newTestLogbook(t)
	for i := 0; i < 5; i++ {
		book.Iteration("01-overview", i, 5, float64(i))
	}
	lines := book.Tail(3)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"2/5", "3/5", "4/5"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestTailMissingFileReturnsNil(t *testing.T) {
	book := newTestLogbook(t)
	if lines := book.Tail(10); lines != nil {
		t.Fatalf("expected nil for empty journal, got %v", lines)
	}
}

func TestNilLogbookDiscardsEvents(t *testing.T) {
	var book *Logbook
	book.RunStarted(1, 1)
	book.SectionApproved("01-overview", 1)
	if lines := book.Tail(5); lines != nil {
		t.Fatalf("nil logbook must report no entries, got %v", lines)
	}
	if book.Path() != "" {
		t.Fatal("nil logbook must report an empty path")
	}
}
