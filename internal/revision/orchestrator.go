package revision

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/courseforge/courseforge/internal/course"
	"github.com/courseforge/courseforge/internal/logbook"
	"github.com/courseforge/courseforge/internal/review"
)

// priorContextCap bounds how much of each accepted section is carried
// forward as continuity context for later sections.
const priorContextCap = 500

// DraftRequest is everything a drafting pass needs. Plan is nil on a
// section's first iteration.
type DraftRequest struct {
	Spec         course.SectionSpec
	PriorContext string
	Plan         *Plan
	Bibliography string
	WebResources string
}

// Drafter produces section content.
type Drafter interface {
	Generate(ctx context.Context, req DraftRequest) (string, error)
}

// Reviewer judges a draft. The two instances (editor and student) are
// independent; neither sees the other's result.
type Reviewer interface {
	Role() review.Role
	Review(ctx context.Context, draft Draft, spec course.SectionSpec) (review.Result, error)
}

// ResourceProvider supplies web research material for a section. The
// orchestrator calls it exactly once per section, on the first iteration,
// and reuses the result verbatim on every revision pass.
type ResourceProvider interface {
	Resources(ctx context.Context, spec course.SectionSpec) (string, error)
}

// Outcome is the terminal state a section reached.
type Outcome string

const (
	// OutcomeApproved means both reviewers approved the final draft.
	OutcomeApproved Outcome = "approved"
	// OutcomeForceApproved means the iteration budget ran out without
	// both approvals; the current draft was kept anyway.
	OutcomeForceApproved Outcome = "force_approved"
	// OutcomeRolledBack means the gate detected degradation and the
	// historical-best draft was restored.
	OutcomeRolledBack Outcome = "rolled_back"
)

// SectionResult is the terminal record for one section.
type SectionResult struct {
	Spec        course.SectionSpec
	Draft       Draft
	Iterations  int
	FinalScores map[review.Role]float64
	Outcome     Outcome
	RolledBack  bool
}

// IterationRecord is the structured log entry emitted once per completed
// iteration.
type IterationRecord struct {
	SectionID        string
	Iteration        int
	MaxIterations    int
	EditorScore      float64
	StudentScore     float64
	CombinedScore    float64
	AcceptedFeedback int
	RejectedFeedback int
	GateDecision     string
}

// Recorder receives the orchestrator's persistence emissions.
type Recorder interface {
	RecordIteration(ctx context.Context, rec IterationRecord) error
	RecordSection(ctx context.Context, res SectionResult) error
}

// Phase labels a progress event.
type Phase string

const (
	PhaseDrafting  Phase = "drafting"
	PhaseReviewing Phase = "reviewing"
	PhaseDone      Phase = "done"
)

// Event is a progress notification for interactive frontends.
type Event struct {
	SectionID string
	Iteration int
	Phase     Phase
	Outcome   Outcome
}

// Orchestrator runs the per-section revision control loop and sequences
// sections strictly one after another.
type Orchestrator struct {
	drafter   Drafter
	reviewers []Reviewer
	resources ResourceProvider
	recorder  Recorder
	journal   *logbook.Logbook
	log       *zap.Logger
	events    func(Event)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithResources attaches a web resource provider.
func WithResources(p ResourceProvider) Option {
	return func(o *Orchestrator) { o.resources = p }
}

// WithRecorder attaches a persistence sink.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithJournal attaches the human-auditable run journal.
func WithJournal(j *logbook.Logbook) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// WithEvents attaches a progress event callback.
func WithEvents(fn func(Event)) Option {
	return func(o *Orchestrator) { o.events = fn }
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// NewOrchestrator wires the control loop. The reviewer order is fixed:
// editor first, student second.
func NewOrchestrator(drafter Drafter, editor, student Reviewer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		drafter:   drafter,
		reviewers: []Reviewer{editor, student},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes every section in order. Any irrecoverable failure halts
// the run; no partial result set is returned.
func (o *Orchestrator) Run(ctx context.Context, specs []course.SectionSpec, bibliographyText string) ([]SectionResult, error) {
	results := make([]SectionResult, 0, len(specs))
	var prior strings.Builder
	for _, spec := range specs {
		res, err := o.RunSection(ctx, spec, bibliographyText, prior.String())
		if err != nil {
			return nil, fmt.Errorf("revision: section %s: %w", spec.ID, err)
		}
		results = append(results, res)
		fmt.Fprintf(&prior, "## %s\n%s\n\n", spec.Title, truncate(res.Draft.Content, priorContextCap))
	}
	return results, nil
}

// RunSection drives one section to a terminal state. Per iteration:
// quality gate first (rollback ends the section with the historical-best
// draft), then the both-approved check, then the iteration budget (a spent
// budget force-approves the current draft), otherwise another revision.
func (o *Orchestrator) RunSection(ctx context.Context, spec course.SectionSpec, bibliographyText, priorContext string) (SectionResult, error) {
	webResources := o.fetchResources(ctx, spec)

	hist := &History{}
	var plan *Plan
	for iter := 0; ; iter++ {
		o.emit(Event{SectionID: spec.ID, Iteration: iter, Phase: PhaseDrafting})
		content, err := o.drafter.Generate(ctx, DraftRequest{
			Spec:         spec,
			PriorContext: priorContext,
			Plan:         plan,
			Bibliography: bibliographyText,
			WebResources: webResources,
		})
		if err != nil {
			return SectionResult{}, fmt.Errorf("generate iteration %d: %w", iter, err)
		}
		draft := NewDraft(spec.ID, iter, content)

		o.emit(Event{SectionID: spec.ID, Iteration: iter, Phase: PhaseReviewing})
		results := make([]review.Result, 0, len(o.reviewers))
		for _, reviewer := range o.reviewers {
			res, err := reviewer.Review(ctx, draft, spec)
			if err != nil {
				return SectionResult{}, fmt.Errorf("%s review iteration %d: %w", reviewer.Role(), iter, err)
			}
			results = append(results, res)
		}

		accepted, rejected := ValidateBatch(feedbackItems(results), o.log)
		accepted = PrioritizeFeedback(accepted)

		entry := HistoryEntry{
			Iteration:     iter,
			Draft:         draft,
			CombinedScore: CombinedScore(results),
			Overall:       overallByRole(results),
			Aspects:       aspectsByRole(results),
		}

		decision, err := EvaluateGate(entry, hist)
		if err != nil {
			return SectionResult{}, err
		}
		if err := hist.Append(entry); err != nil {
			return SectionResult{}, err
		}

		maxIter := MaxIterations(entry.Overall)
		bothApproved := allApproved(results)

		rec := IterationRecord{
			SectionID:        spec.ID,
			Iteration:        iter,
			MaxIterations:    maxIter,
			EditorScore:      entry.Overall[review.RoleEditor],
			StudentScore:     entry.Overall[review.RoleStudent],
			CombinedScore:    entry.CombinedScore,
			AcceptedFeedback: len(accepted),
			RejectedFeedback: len(rejected),
			GateDecision:     decision.Action.String(),
		}
		o.logIteration(rec)
		if o.recorder != nil {
			if err := o.recorder.RecordIteration(ctx, rec); err != nil {
				return SectionResult{}, fmt.Errorf("record iteration %d: %w", iter, err)
			}
		}

		if decision.Action == GateRollback {
			res := SectionResult{
				Spec:        spec,
				Draft:       decision.RollbackTo.Draft,
				Iterations:  hist.Len(),
				FinalScores: decision.RollbackTo.Overall,
				Outcome:     OutcomeRolledBack,
				RolledBack:  true,
			}
			o.journal.SectionRolledBack(spec.ID, decision.RollbackTo.Iteration,
				decision.RollbackTo.CombinedScore, entry.CombinedScore)
			return o.finish(ctx, res)
		}
		if bothApproved {
			res := SectionResult{
				Spec:        spec,
				Draft:       draft,
				Iterations:  hist.Len(),
				FinalScores: entry.Overall,
				Outcome:     OutcomeApproved,
			}
			o.journal.SectionApproved(spec.ID, hist.Len())
			return o.finish(ctx, res)
		}
		if ShouldStop(iter, maxIter, false) {
			res := SectionResult{
				Spec:        spec,
				Draft:       draft,
				Iterations:  hist.Len(),
				FinalScores: entry.Overall,
				Outcome:     OutcomeForceApproved,
			}
			o.journal.SectionForceApproved(spec.ID, hist.Len())
			return o.finish(ctx, res)
		}

		next := BuildPlan(results, hist)
		next.Feedback = accepted
		plan = &next
	}
}

// fetchResources populates the section's web resource cache. A provider
// failure degrades to empty resources rather than halting the run.
func (o *Orchestrator) fetchResources(ctx context.Context, spec course.SectionSpec) string {
	if o.resources == nil {
		return ""
	}
	resources, err := o.resources.Resources(ctx, spec)
	if err != nil {
		o.log.Warn("web resources unavailable, drafting without them",
			zap.String("section", spec.ID),
			zap.Error(err),
		)
		return ""
	}
	return resources
}

func (o *Orchestrator) finish(ctx context.Context, res SectionResult) (SectionResult, error) {
	if o.recorder != nil {
		if err := o.recorder.RecordSection(ctx, res); err != nil {
			return SectionResult{}, fmt.Errorf("record section: %w", err)
		}
	}
	o.emit(Event{SectionID: res.Spec.ID, Iteration: res.Iterations - 1, Phase: PhaseDone, Outcome: res.Outcome})
	o.log.Info("section finished",
		zap.String("section", res.Spec.ID),
		zap.Int("iterations", res.Iterations),
		zap.String("outcome", string(res.Outcome)),
	)
	return res, nil
}

func (o *Orchestrator) logIteration(rec IterationRecord) {
	o.journal.Iteration(rec.SectionID, rec.Iteration, rec.MaxIterations, rec.CombinedScore)
	o.log.Info("iteration completed",
		zap.String("section", rec.SectionID),
		zap.Int("iteration", rec.Iteration),
		zap.Int("max_iterations", rec.MaxIterations),
		zap.Float64("editor_score", rec.EditorScore),
		zap.Float64("student_score", rec.StudentScore),
		zap.Float64("combined_score", rec.CombinedScore),
		zap.Int("feedback_accepted", rec.AcceptedFeedback),
		zap.Int("feedback_rejected", rec.RejectedFeedback),
		zap.String("gate_decision", rec.GateDecision),
	)
}

func (o *Orchestrator) emit(e Event) {
	if o.events != nil {
		o.events(e)
	}
}

func feedbackItems(results []review.Result) []FeedbackItem {
	var items []FeedbackItem
	for _, r := range results {
		for _, text := range r.RequiredFixes {
			items = append(items, FeedbackItem{Reviewer: r.Reviewer, Text: text})
		}
		for _, text := range r.Suggestions {
			items = append(items, FeedbackItem{Reviewer: r.Reviewer, Text: text})
		}
	}
	return items
}

func overallByRole(results []review.Result) map[review.Role]float64 {
	out := make(map[review.Role]float64, len(results))
	for _, r := range results {
		out[r.Reviewer] = r.Overall
	}
	return out
}

func aspectsByRole(results []review.Result) map[review.Role]map[string]float64 {
	out := make(map[review.Role]map[string]float64, len(results))
	for _, r := range results {
		if len(r.Aspects) > 0 {
			out[r.Reviewer] = r.Aspects
		}
	}
	return out
}

func allApproved(results []review.Result) bool {
	for _, r := range results {
		if !r.Approved {
			return false
		}
	}
	return len(results) > 0
}
