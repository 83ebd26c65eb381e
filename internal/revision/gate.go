package revision

import "fmt"

// rollbackThreshold is how far a draft's combined score may fall below the
// historical best before the gate abandons the revision path.
const rollbackThreshold = 2.0

// GateAction is the quality gate's verdict.
type GateAction int

const (
	// GateContinue lets the normal approve/revise decision proceed.
	GateContinue GateAction = iota
	// GateRollback ends the section with the historical-best draft. It is
	// terminal: no further iteration happens even if budget remains.
	GateRollback
)

func (a GateAction) String() string {
	switch a {
	case GateContinue:
		return "continue"
	case GateRollback:
		return "rollback"
	default:
		return fmt.Sprintf("GateAction(%d)", int(a))
	}
}

// GateDecision carries the verdict and, on rollback, the draft to fall
// back to.
type GateDecision struct {
	Action     GateAction
	RollbackTo HistoryEntry
}

// EvaluateGate compares the current iteration's entry against the best
// prior entry in the ledger. The ledger must hold only iterations before
// the current one; the caller appends the current entry afterwards.
//
// At iteration 0 the gate never consults history: there is nothing to
// compare against. For later iterations an empty ledger is a caller bug
// and surfaces as ErrEmptyHistory.
func EvaluateGate(current HistoryEntry, prior *History) (GateDecision, error) {
	if current.Iteration == 0 {
		return GateDecision{Action: GateContinue}, nil
	}
	best, err := prior.Best()
	if err != nil {
		return GateDecision{}, fmt.Errorf("revision: gate at iteration %d: %w", current.Iteration, err)
	}
	if best.CombinedScore-current.CombinedScore > rollbackThreshold {
		return GateDecision{Action: GateRollback, RollbackTo: best}, nil
	}
	return GateDecision{Action: GateContinue}, nil
}
