package revision

import (
	"strings"
	"testing"

	"github.com/courseforge/courseforge/internal/review"
)

func TestBuildPlanClassifiesAspectsPerReviewer(t *testing.T) {
	hist := &History{}
	if err := hist.Append(entry(0, 13)); err != nil {
		t.Fatalf("append: %v", err)
	}
	results := []review.Result{
		{Reviewer: review.RoleEditor, Aspects: map[string]float64{"clarity": 8, "structure": 5}},
		{Reviewer: review.RoleStudent, Aspects: map[string]float64{"clarity": 6, "engagement": 9}},
	}
	plan := BuildPlan(results, hist)

	if len(plan.Preserve) != 2 {
		t.Fatalf("preserve = %v, want 2 facts", plan.Preserve)
	}
	if len(plan.Fix) != 2 {
		t.Fatalf("fix = %v, want 2 facts", plan.Fix)
	}
	// clarity appears once per reviewer, classified independently.
	var editorClarityPreserved, studentClarityFixed bool
	for _, f := range plan.Preserve {
		if f.Aspect == "clarity" && f.Reviewer == review.RoleEditor {
			editorClarityPreserved = true
		}
	}
	for _, f := range plan.Fix {
		if f.Aspect == "clarity" && f.Reviewer == review.RoleStudent {
			studentClarityFixed = true
		}
	}
	if !editorClarityPreserved || !studentClarityFixed {
		t.Fatal("the same aspect from two reviewers must be two distinct facts")
	}
}

func TestBuildPlanThresholdBoundary(t *testing.T) {
	hist := &History{}
	if err := hist.Append(entry(0, 7)); err != nil {
		t.Fatalf("append: %v", err)
	}
	results := []review.Result{
		{Reviewer: review.RoleEditor, Aspects: map[string]float64{"depth": 7}},
	}
	plan := BuildPlan(results, hist)
	if len(plan.Preserve) != 1 || len(plan.Fix) != 0 {
		t.Fatalf("score exactly 7 belongs in preserve, got preserve=%v fix=%v", plan.Preserve, plan.Fix)
	}
}

func TestBuildPlanCapsExcerptAndTrend(t *testing.T) {
	hist := &History{}
	long := strings.Repeat("word ", 1000)
	for i, score := range []float64{10, 12, 14, 16} {
		e := HistoryEntry{Iteration: i, Draft: NewDraft("s1", i, long), CombinedScore: score}
		if err := hist.Append(e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	plan := BuildPlan(nil, hist)
	if len(plan.PreviousExcerpt) != excerptCap {
		t.Fatalf("excerpt length = %d, want %d", len(plan.PreviousExcerpt), excerptCap)
	}
	if len(plan.Trend) != trendWindow {
		t.Fatalf("trend = %v, want last %d scores", plan.Trend, trendWindow)
	}
	if plan.Trend[0] != 12 || plan.Trend[2] != 16 {
		t.Fatalf("trend = %v, want oldest-first window", plan.Trend)
	}
}

func TestRenderOmitsEmptyGroups(t *testing.T) {
	plan := Plan{
		Fix: []AspectFact{{Reviewer: review.RoleEditor, Aspect: "structure", Score: 4}},
	}
	text := plan.Render()
	if strings.Contains(text, "STRENGTHS TO PRESERVE") {
		t.Fatal("empty preserve group must be omitted, not rendered")
	}
	if !strings.Contains(text, "ASPECTS NEEDING FIXES") {
		t.Fatalf("fix group missing:\n%s", text)
	}
	if !strings.Contains(text, "structure (editor): 4.0") {
		t.Fatalf("fact line missing exact score and source:\n%s", text)
	}
	if !strings.Contains(text, "PRESERVATION RULES:\n1.") {
		t.Fatalf("numbered rules missing:\n%s", text)
	}
}

func TestRenderIncludesOrderedFeedbackWithSource(t *testing.T) {
	plan := Plan{Feedback: []FeedbackItem{
		{Reviewer: review.RoleEditor, Text: "Section 1: fix the date"},
		{Reviewer: review.RoleStudent, Text: "Section 2: add a citation"},
	}}
	text := plan.Render()
	if !strings.Contains(text, "1. Section 1: fix the date (editor)") {
		t.Fatalf("feedback not numbered with its source reviewer:\n%s", text)
	}
	if !strings.Contains(text, "2. Section 2: add a citation (student)") {
		t.Fatalf("student feedback missing its source tag:\n%s", text)
	}
}
