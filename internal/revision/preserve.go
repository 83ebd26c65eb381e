package revision

import (
	"fmt"
	"sort"
	"strings"

	"github.com/courseforge/courseforge/internal/review"
)

const (
	// preserveThreshold splits aspect scores into preserve (>=) and fix (<).
	preserveThreshold = 7.0

	// excerptCap bounds the previous-draft excerpt embedded in the plan.
	excerptCap = 1500

	// trendWindow is how many recent combined scores the plan carries.
	trendWindow = 3
)

// preservationRules are rendered verbatim at the end of every plan.
var preservationRules = []string{
	"Do not rewrite the draft from scratch.",
	"Keep every aspect scoring 7 or above unchanged.",
	"Change only the aspects listed as needing fixes.",
	"Do not shrink the word count unless a feedback item explicitly asks for it.",
	"Preserve the narrative structure and section flow.",
	"Prefer surgical edits over broad restructuring.",
}

// AspectFact is one (reviewer, aspect, score) classification. The same
// aspect name from two reviewers is two distinct facts; scores are never
// merged or averaged.
type AspectFact struct {
	Reviewer review.Role
	Aspect   string
	Score    float64
}

// Plan is the preserve-vs-fix instruction set for the next drafting pass.
// It is rebuilt fresh every iteration and not persisted.
type Plan struct {
	Preserve        []AspectFact
	Fix             []AspectFact
	Feedback        []FeedbackItem
	Trend           []float64
	PreviousExcerpt string
	BestIteration   int
}

// BuildPlan classifies every aspect score from the supplied reviews and
// attaches the recent score trend and an excerpt of the latest draft.
func BuildPlan(results []review.Result, hist *History) Plan {
	plan := Plan{Trend: hist.RecentScores(trendWindow)}
	for _, r := range results {
		aspects := make([]string, 0, len(r.Aspects))
		for aspect := range r.Aspects {
			aspects = append(aspects, aspect)
		}
		sort.Strings(aspects)
		for _, aspect := range aspects {
			fact := AspectFact{Reviewer: r.Reviewer, Aspect: aspect, Score: r.Aspects[aspect]}
			if fact.Score >= preserveThreshold {
				plan.Preserve = append(plan.Preserve, fact)
			} else {
				plan.Fix = append(plan.Fix, fact)
			}
		}
	}
	if latest, err := hist.Latest(); err == nil {
		plan.PreviousExcerpt = truncate(latest.Draft.Content, excerptCap)
	}
	if best, err := hist.Best(); err == nil {
		plan.BestIteration = best.Iteration
	}
	return plan
}

// Render produces the text handed to the drafting agent. Empty preserve or
// fix groups are omitted entirely rather than rendered as empty lists.
func (p *Plan) Render() string {
	var b strings.Builder
	b.WriteString("REVISION PLAN\n")

	if len(p.Preserve) > 0 {
		b.WriteString("\nSTRENGTHS TO PRESERVE (do not alter these):\n")
		writeFacts(&b, p.Preserve)
	}
	if len(p.Fix) > 0 {
		b.WriteString("\nASPECTS NEEDING FIXES (change only these):\n")
		writeFacts(&b, p.Fix)
	}
	if len(p.Feedback) > 0 {
		b.WriteString("\nVALIDATED FEEDBACK (address in order):\n")
		for i, item := range p.Feedback {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, item.Text, item.Reviewer)
		}
	}
	if len(p.Trend) > 0 {
		b.WriteString("\nSCORE TREND (oldest first): ")
		parts := make([]string, len(p.Trend))
		for i, s := range p.Trend {
			parts[i] = fmt.Sprintf("%.1f", s)
		}
		b.WriteString(strings.Join(parts, " -> "))
		b.WriteString("\n")
	}
	if p.PreviousExcerpt != "" {
		fmt.Fprintf(&b, "\nPREVIOUS DRAFT EXCERPT (reference anchor, first %d characters):\n%s\n",
			excerptCap, p.PreviousExcerpt)
	}
	b.WriteString("\nPRESERVATION RULES:\n")
	for i, rule := range preservationRules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	return b.String()
}

func writeFacts(b *strings.Builder, facts []AspectFact) {
	for _, f := range facts {
		fmt.Fprintf(b, "- %s (%s): %.1f\n", f.Aspect, f.Reviewer, f.Score)
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
