package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/courseforge/courseforge/internal/course"
	"github.com/courseforge/courseforge/internal/review"
	"github.com/courseforge/courseforge/internal/revision"
)

// ReviewAgent judges drafts from one perspective. It implements
// revision.Reviewer.
type ReviewAgent struct {
	client LLMClient
	model  string
	role   review.Role
	system string
	log    *zap.Logger
}

// NewEditorReviewer builds the structural/pedagogical reviewer.
func NewEditorReviewer(client LLMClient, model string, log *zap.Logger) *ReviewAgent {
	return newReviewAgent(client, model, review.RoleEditor, editorSystemPrompt, log)
}

// NewStudentReviewer builds the student-usability reviewer.
func NewStudentReviewer(client LLMClient, model string, log *zap.Logger) *ReviewAgent {
	return newReviewAgent(client, model, review.RoleStudent, studentSystemPrompt, log)
}

func newReviewAgent(client LLMClient, model string, role review.Role, system string, log *zap.Logger) *ReviewAgent {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewAgent{client: client, model: model, role: role, system: system, log: log}
}

// Role reports which reviewer this is.
func (a *ReviewAgent) Role() review.Role { return a.role }

type reviewPayload struct {
	Approved      bool               `json:"approved"`
	OverallScore  float64            `json:"overall_score"`
	Scores        map[string]float64 `json:"scores"`
	RequiredFixes []string           `json:"required_fixes"`
	Suggestions   []string           `json:"suggestions"`
}

// Review asks the model to judge a draft and parses the JSON verdict. A
// response that cannot be parsed becomes a not-approved zero-score result
// rather than a run-halting error, which pushes the loop toward another
// revision instead of aborting the section.
func (a *ReviewAgent) Review(ctx context.Context, draft revision.Draft, spec course.SectionSpec) (review.Result, error) {
	prompt := Prompt{System: a.system, User: renderReviewPrompt(draft, spec.Title, spec.Description)}
	raw, err := a.client.Complete(ctx, a.model, prompt)
	if err != nil {
		return review.Result{}, fmt.Errorf("agents: %s review of %s: %w", a.role, spec.ID, err)
	}

	var payload reviewPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		a.log.Warn("unparseable review response, treating as not approved",
			zap.String("reviewer", string(a.role)),
			zap.String("section", spec.ID),
			zap.Error(err),
		)
		return review.Result{Reviewer: a.role}, nil
	}
	return review.Result{
		Reviewer:      a.role,
		Approved:      payload.Approved,
		Overall:       payload.OverallScore,
		Aspects:       review.NormalizeAspects(payload.Scores, a.role, a.log),
		RequiredFixes: payload.RequiredFixes,
		Suggestions:   payload.Suggestions,
	}, nil
}

// extractJSON pulls the first top-level JSON object out of a response that
// may be wrapped in a code fence or prose.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
