package artifact

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/courseforge/courseforge/internal/course"
	"github.com/courseforge/courseforge/internal/review"
	"github.com/courseforge/courseforge/internal/revision"
)

var fixedTime = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func TestWriteAndReadSection(t *testing.T) {
	store := NewStore(t.TempDir(), WithClock(func() time.Time { return fixedTime }))
	res := revision.SectionResult{
		Spec:       course.SectionSpec{ID: "01-overview", Title: "Overview", Ordinal: 1},
		Draft:      revision.NewDraft("01-overview", 1, "# Overview\n\nBody."),
		Iterations: 2,
		FinalScores: map[review.Role]float64{
			review.RoleEditor:  8,
			review.RoleStudent: 9,
		},
		Outcome: revision.OutcomeApproved,
	}

	path, err := store.WriteSection(res, 3)
	if err != nil {
		t.Fatalf("write section: %v", err)
	}
	if !strings.HasSuffix(path, "01-01-overview.md") {
		t.Fatalf("path = %q", path)
	}

	meta, body, err := store.ReadSection(path)
	if err != nil {
		t.Fatalf("read section: %v", err)
	}
	if meta.SectionID != "01-overview" || meta.Week != 3 || meta.Iterations != 2 {
		t.Fatalf("meta = %+v", meta)
	}
	if meta.Outcome != revision.OutcomeApproved || meta.RolledBack {
		t.Fatalf("outcome meta = %+v", meta)
	}
	if meta.EditorScore != 8 || meta.StudentScore != 9 {
		t.Fatalf("scores = %v/%v", meta.EditorScore, meta.StudentScore)
	}
	if !strings.HasPrefix(string(body), "# Overview") {
		t.Fatalf("body = %q", body)
	}
	if !meta.CreatedAt.Equal(fixedTime) {
		t.Fatalf("created = %v, want %v", meta.CreatedAt, fixedTime)
	}
}

func TestRolledBackFlagSurvivesRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), WithClock(func() time.Time { return fixedTime }))
	res := revision.SectionResult{
		Spec:       course.SectionSpec{ID: "02-deep", Title: "Deep Dive", Ordinal: 2},
		Draft:      revision.NewDraft("02-deep", 0, "content"),
		Iterations: 2,
		Outcome:    revision.OutcomeRolledBack,
		RolledBack: true,
	}
	path, err := store.WriteSection(res, 1)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	meta, _, err := store.ReadSection(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !meta.RolledBack || meta.Outcome != revision.OutcomeRolledBack {
		t.Fatalf("rollback marking lost: %+v", meta)
	}
}

func TestParseFrontMatterErrors(t *testing.T) {
	if _, _, err := ParseFrontMatter(nil); !errors.Is(err, ErrMissingFrontMatter) {
		t.Fatalf("empty input: err = %v", err)
	}
	if _, _, err := ParseFrontMatter([]byte("no fences here")); !errors.Is(err, ErrMissingFrontMatter) {
		t.Fatalf("unfenced input: err = %v", err)
	}
	if _, _, err := ParseFrontMatter([]byte("---\ncourseforge:\n  title: x\n---\n\nbody")); !errors.Is(err, ErrMalformedFrontMatter) {
		t.Fatalf("missing section id: err = %v", err)
	}
}
