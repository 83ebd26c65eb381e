package revision

import "github.com/courseforge/courseforge/internal/review"

const (
	// MissingReviewScore stands in for an absent reviewer's overall score
	// when sizing the iteration budget. It is deliberately the maximum:
	// the absence of a negative signal must never itself buy the section
	// an extra revision.
	MissingReviewScore = 10.0

	// lowQualityThreshold is the overall score below which a reviewer's
	// verdict extends the iteration budget.
	lowQualityThreshold = 6.0

	baseIterations     = 1
	extendedIterations = 2
)

// MaxIterations sizes the revision budget from the reviewers' overall
// scores. Either reviewer scoring below the low-quality threshold doubles
// the budget. A reviewer missing from the map counts as
// MissingReviewScore.
func MaxIterations(overall map[review.Role]float64) int {
	for _, role := range []review.Role{review.RoleEditor, review.RoleStudent} {
		score, ok := overall[role]
		if !ok {
			score = MissingReviewScore
		}
		if score < lowQualityThreshold {
			return extendedIterations
		}
	}
	return baseIterations
}

// ShouldStop reports whether the loop ends after the current iteration:
// both reviewers approved, or the budget is spent. The caller distinguishes
// the two (the second is a force-approval, not a clean accept).
func ShouldStop(currentIteration, max int, bothApproved bool) bool {
	return bothApproved || currentIteration >= max
}
