// Package review defines the reviewer contract shared by the editor and
// student agents and the score vocabulary their breakdowns are validated
// against.
package review

import (
	"strings"

	"go.uber.org/zap"
)

// Role identifies which reviewer produced a result.
type Role string

const (
	// RoleEditor is the structural/pedagogical reviewer.
	RoleEditor Role = "editor"
	// RoleStudent is the student-usability reviewer.
	RoleStudent Role = "student"
)

// Result is the output of one reviewer pass. Results are never mutated
// after creation; a new iteration produces a new Result.
type Result struct {
	Reviewer      Role
	Approved      bool
	Overall       float64
	Aspects       map[string]float64
	RequiredFixes []string
	Suggestions   []string
}

// knownAspects is the semi-open score vocabulary. Reviewer breakdowns are
// normalized against it at ingestion so a key typo cannot silently create
// an unmatched preserve/fix bucket downstream.
var knownAspects = map[string]bool{
	"clarity":       true,
	"engagement":    true,
	"accuracy":      true,
	"structure":     true,
	"relevance":     true,
	"depth":         true,
	"accessibility": true,
	"citations":     true,
	"examples":      true,
	"flow":          true,
	"wlo_alignment": true,
}

// NormalizeAspects canonicalizes aspect keys (lowercase, trimmed, spaces
// and dashes to underscores). Unknown aspects are kept — the vocabulary is
// semi-open — but logged so typos surface instead of vanishing into the
// preserve/fix classification.
func NormalizeAspects(raw map[string]float64, reviewer Role, log *zap.Logger) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for key, score := range raw {
		canonical := canonicalAspect(key)
		if canonical == "" {
			continue
		}
		if !knownAspects[canonical] && log != nil {
			log.Warn("unknown review aspect",
				zap.String("reviewer", string(reviewer)),
				zap.String("aspect", canonical),
			)
		}
		out[canonical] = score
	}
	return out
}

func canonicalAspect(key string) string {
	canonical := strings.ToLower(strings.TrimSpace(key))
	canonical = strings.ReplaceAll(canonical, " ", "_")
	canonical = strings.ReplaceAll(canonical, "-", "_")
	return canonical
}
