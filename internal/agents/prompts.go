package agents

import (
	"fmt"
	"strings"

	"github.com/courseforge/courseforge/internal/revision"
)

const writerSystemPrompt = `You are an experienced instructional designer writing weekly course
content for university students. Write clear, engaging, accurate prose in
markdown. Ground every factual claim in the verified bibliography or the
web resources you are given, and cite sources inline. Never invent
references.`

const editorSystemPrompt = `You are a senior course editor reviewing a draft section for
structure, pedagogy, and accuracy. Respond with a single JSON object and
nothing else, using this shape:
{
  "approved": true|false,
  "overall_score": 0-10,
  "scores": {"clarity": 0-10, "structure": 0-10, "accuracy": 0-10, "citations": 0-10, "wlo_alignment": 0-10},
  "required_fixes": ["..."],
  "suggestions": ["..."]
}
Each required fix must name a location (section, paragraph, heading, or a
numbered reference like 2.1) and a concrete action. Approve only drafts you
would publish as-is.`

const studentSystemPrompt = `You are a student reading a draft section of your course materials.
Judge how understandable, engaging, and useful it is for someone learning
this for the first time. Respond with a single JSON object and nothing
else, using this shape:
{
  "approved": true|false,
  "overall_score": 0-10,
  "scores": {"clarity": 0-10, "engagement": 0-10, "accessibility": 0-10, "examples": 0-10, "flow": 0-10},
  "required_fixes": ["..."],
  "suggestions": ["..."]
}
Each required fix must name where in the draft the problem is and what
should change.`

// renderDraftPrompt assembles the writer's user message from the request.
// The preservation plan, when present, comes last so its rules are the
// freshest instruction the model sees.
func renderDraftPrompt(req revision.DraftRequest, guidelines string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the section %q.\n\nDescription: %s\n", req.Spec.Title, req.Spec.Description)
	if limit := req.Spec.WordLimit(); limit > 0 {
		fmt.Fprintf(&b, "Target length: at most %d words.\n", limit)
	}
	if guidelines != "" {
		fmt.Fprintf(&b, "\nWRITING GUIDELINES:\n%s\n", strings.TrimSpace(guidelines))
	}
	if req.PriorContext != "" {
		fmt.Fprintf(&b, "\nPREVIOUS SECTIONS (for continuity, do not repeat):\n%s\n", strings.TrimSpace(req.PriorContext))
	}
	if req.Bibliography != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(req.Bibliography))
	}
	if req.WebResources != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(req.WebResources))
	}
	if req.Plan != nil {
		fmt.Fprintf(&b, "\nThis is a revision pass. Follow the plan exactly:\n\n%s\n", req.Plan.Render())
	}
	return b.String()
}

// renderReviewPrompt assembles a reviewer's user message.
func renderReviewPrompt(draft revision.Draft, title, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Section: %s\nDescription: %s\nIteration: %d\nWord count: %d\n\nDRAFT:\n%s\n",
		title, description, draft.Iteration, draft.WordCount, draft.Content)
	return b.String()
}
