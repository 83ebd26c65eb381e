package revision

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/courseforge/courseforge/internal/course"
	"github.com/courseforge/courseforge/internal/logbook"
	"github.com/courseforge/courseforge/internal/review"
)

type scriptedDrafter struct {
	calls    int
	lastPlan *Plan
}

func (d *scriptedDrafter) Generate(_ context.Context, req DraftRequest) (string, error) {
	d.calls++
	d.lastPlan = req.Plan
	return fmt.Sprintf("draft %d for %s", d.calls, req.Spec.ID), nil
}

type scriptedReviewer struct {
	role    review.Role
	results []review.Result
	calls   int
	err     error
}

func (r *scriptedReviewer) Role() review.Role { return r.role }

func (r *scriptedReviewer) Review(context.Context, Draft, course.SectionSpec) (review.Result, error) {
	if r.err != nil {
		return review.Result{}, r.err
	}
	res := r.results[r.calls]
	if r.calls < len(r.results)-1 {
		r.calls++
	}
	return res, nil
}

type countingResources struct {
	calls int
}

func (p *countingResources) Resources(context.Context, course.SectionSpec) (string, error) {
	p.calls++
	return "cached web material", nil
}

type memoryRecorder struct {
	iterations []IterationRecord
	sections   []SectionResult
}

func (m *memoryRecorder) RecordIteration(_ context.Context, rec IterationRecord) error {
	m.iterations = append(m.iterations, rec)
	return nil
}

func (m *memoryRecorder) RecordSection(_ context.Context, res SectionResult) error {
	m.sections = append(m.sections, res)
	return nil
}

func result(role review.Role, approved bool, overall float64) review.Result {
	return review.Result{Reviewer: role, Approved: approved, Overall: overall}
}

func testSpec() course.SectionSpec {
	return course.SectionSpec{ID: "01-overview", Title: "Overview", Description: "intro", Ordinal: 1}
}

func TestRunSectionApprovedFirstPass(t *testing.T) {
	drafter := &scriptedDrafter{}
	editor := &scriptedReviewer{role: review.RoleEditor, results: []review.Result{result(review.RoleEditor, true, 8)}}
	student := &scriptedReviewer{role: review.RoleStudent, results: []review.Result{result(review.RoleStudent, true, 9)}}
	rec := &memoryRecorder{}
	o := NewOrchestrator(drafter, editor, student, WithRecorder(rec))

	res, err := o.RunSection(context.Background(), testSpec(), "", "")
	if err != nil {
		t.Fatalf("run section: %v", err)
	}
	if res.Outcome != OutcomeApproved {
		t.Fatalf("outcome = %s, want approved", res.Outcome)
	}
	if res.Iterations != 1 || drafter.calls != 1 {
		t.Fatalf("iterations = %d, drafter calls = %d, want 1 each", res.Iterations, drafter.calls)
	}
	if len(rec.iterations) != 1 || len(rec.sections) != 1 {
		t.Fatalf("recorder got %d iteration rows, %d sections", len(rec.iterations), len(rec.sections))
	}
}

func TestRunSectionLowScoreExtendsLoop(t *testing.T) {
	// Iteration 0 scores editor=5, student=7: budget extends to 2 and the
	// loop continues into iteration 1.
	drafter := &scriptedDrafter{}
	editor := &scriptedReviewer{role: review.RoleEditor, results: []review.Result{
		result(review.RoleEditor, false, 5),
		result(review.RoleEditor, true, 8),
	}}
	student := &scriptedReviewer{role: review.RoleStudent, results: []review.Result{
		result(review.RoleStudent, false, 7),
		result(review.RoleStudent, true, 8),
	}}
	o := NewOrchestrator(drafter, editor, student)

	res, err := o.RunSection(context.Background(), testSpec(), "", "")
	if err != nil {
		t.Fatalf("run section: %v", err)
	}
	if drafter.calls != 2 {
		t.Fatalf("drafter calls = %d, want 2 (iteration 1 produced)", drafter.calls)
	}
	if res.Outcome != OutcomeApproved || res.Iterations != 2 {
		t.Fatalf("outcome = %s after %d iterations, want approved after 2", res.Outcome, res.Iterations)
	}
	if drafter.lastPlan == nil {
		t.Fatal("revision pass must receive a preservation plan")
	}
}

func TestRunSectionRollsBackOnDegradation(t *testing.T) {
	drafter := &scriptedDrafter{}
	editor := &scriptedReviewer{role: review.RoleEditor, results: []review.Result{
		result(review.RoleEditor, false, 11),
		result(review.RoleEditor, false, 7),
	}}
	student := &scriptedReviewer{role: review.RoleStudent, results: []review.Result{
		result(review.RoleStudent, false, 11),
		result(review.RoleStudent, false, 7),
	}}
	rec := &memoryRecorder{}
	o := NewOrchestrator(drafter, editor, student, WithRecorder(rec))

	res, err := o.RunSection(context.Background(), testSpec(), "", "")
	if err != nil {
		t.Fatalf("run section: %v", err)
	}
	if res.Outcome != OutcomeRolledBack || !res.RolledBack {
		t.Fatalf("outcome = %s, want rolled_back", res.Outcome)
	}
	if res.Draft.Iteration != 0 {
		t.Fatalf("final draft iteration = %d, want 0 (historical best)", res.Draft.Iteration)
	}
	// Rollback is terminal even though the combined score of 14 would have
	// allowed budget to remain.
	if drafter.calls != 2 {
		t.Fatalf("drafter calls = %d, want 2 (no iteration after rollback)", drafter.calls)
	}
	last := rec.iterations[len(rec.iterations)-1]
	if last.GateDecision != "rollback" {
		t.Fatalf("gate decision = %q, want rollback", last.GateDecision)
	}
}

func TestRunSectionJournalsRollback(t *testing.T) {
	journal, err := logbook.New(filepath.Join(t.TempDir(), "journey.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	drafter := &scriptedDrafter{}
	editor := &scriptedReviewer{role: review.RoleEditor, results: []review.Result{
		result(review.RoleEditor, false, 11),
		result(review.RoleEditor, false, 7),
	}}
	student := &scriptedReviewer{role: review.RoleStudent, results: []review.Result{
		result(review.RoleStudent, false, 11),
		result(review.RoleStudent, false, 7),
	}}
	o := NewOrchestrator(drafter, editor, student, WithJournal(journal))

	if _, err := o.RunSection(context.Background(), testSpec(), "", ""); err != nil {
		t.Fatalf("run section: %v", err)
	}
	joined := strings.Join(journal.Tail(10), "\n")
	if !strings.Contains(joined, "iteration: section 01-overview 0/") {
		t.Fatalf("journal missing per-iteration line:\n%s", joined)
	}
	if !strings.Contains(joined, "rollback: section 01-overview restored to iteration 0") {
		t.Fatalf("journal missing rollback line:\n%s", joined)
	}
}

func TestRunSectionForceApprovesOnExhaustedBudget(t *testing.T) {
	drafter := &scriptedDrafter{}
	editor := &scriptedReviewer{role: review.RoleEditor, results: []review.Result{
		result(review.RoleEditor, false, 7),
		result(review.RoleEditor, false, 7),
	}}
	student := &scriptedReviewer{role: review.RoleStudent, results: []review.Result{
		result(review.RoleStudent, false, 8),
		result(review.RoleStudent, false, 8),
	}}
	o := NewOrchestrator(drafter, editor, student)

	res, err := o.RunSection(context.Background(), testSpec(), "", "")
	if err != nil {
		t.Fatalf("run section: %v", err)
	}
	if res.Outcome != OutcomeForceApproved {
		t.Fatalf("outcome = %s, want force_approved", res.Outcome)
	}
	if res.Draft.Iteration != 1 {
		t.Fatalf("force-approval keeps the current draft, got iteration %d", res.Draft.Iteration)
	}
}

func TestRunFetchesWebResourcesOncePerSection(t *testing.T) {
	drafter := &scriptedDrafter{}
	editor := &scriptedReviewer{role: review.RoleEditor, results: []review.Result{
		result(review.RoleEditor, false, 5),
		result(review.RoleEditor, false, 5),
		result(review.RoleEditor, false, 5),
	}}
	student := &scriptedReviewer{role: review.RoleStudent, results: []review.Result{
		result(review.RoleStudent, false, 5),
		result(review.RoleStudent, false, 5),
		result(review.RoleStudent, false, 5),
	}}
	resources := &countingResources{}
	o := NewOrchestrator(drafter, editor, student, WithResources(resources))

	if _, err := o.RunSection(context.Background(), testSpec(), "", ""); err != nil {
		t.Fatalf("run section: %v", err)
	}
	if drafter.calls < 2 {
		t.Fatalf("expected multiple iterations, drafter calls = %d", drafter.calls)
	}
	if resources.calls != 1 {
		t.Fatalf("web resources fetched %d times, want exactly 1 per section", resources.calls)
	}
}

func TestRunHaltsOnReviewerFailure(t *testing.T) {
	drafter := &scriptedDrafter{}
	editor := &scriptedReviewer{role: review.RoleEditor, err: errors.New("model unavailable")}
	student := &scriptedReviewer{role: review.RoleStudent, results: []review.Result{result(review.RoleStudent, true, 9)}}
	o := NewOrchestrator(drafter, editor, student)

	specs := []course.SectionSpec{testSpec()}
	results, err := o.Run(context.Background(), specs, "")
	if err == nil {
		t.Fatal("reviewer failure must halt the run")
	}
	if results != nil {
		t.Fatal("no partial results may be returned")
	}
}

func TestRunSequencesSectionsAndCarriesContext(t *testing.T) {
	type capture struct {
		priorContexts []string
	}
	seen := &capture{}
	drafter := draftFunc(func(req DraftRequest) (string, error) {
		seen.priorContexts = append(seen.priorContexts, req.PriorContext)
		return "content for " + req.Spec.ID, nil
	})
	editor := &scriptedReviewer{role: review.RoleEditor, results: []review.Result{result(review.RoleEditor, true, 9)}}
	student := &scriptedReviewer{role: review.RoleStudent, results: []review.Result{result(review.RoleStudent, true, 9)}}
	o := NewOrchestrator(drafter, editor, student)

	specs := []course.SectionSpec{
		{ID: "01", Title: "First", Description: "a", Ordinal: 1},
		{ID: "02", Title: "Second", Description: "b", Ordinal: 2},
	}
	results, err := o.Run(context.Background(), specs, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if seen.priorContexts[0] != "" {
		t.Fatal("first section must start with empty prior context")
	}
	if seen.priorContexts[1] == "" {
		t.Fatal("second section must receive the first section's context")
	}
}

type draftFunc func(DraftRequest) (string, error)

func (f draftFunc) Generate(_ context.Context, req DraftRequest) (string, error) {
	return f(req)
}
