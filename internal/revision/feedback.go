package revision

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/courseforge/courseforge/internal/review"
)

// maxFeedbackLength bounds a single feedback item. Longer items are almost
// always multiple demands fused together, which the drafting agent handles
// badly.
const maxFeedbackLength = 300

// locationTokens are the references that anchor a feedback item to a spot
// in the draft. An item with none of these (and no dotted numeric reference
// like "1.2") is unactionable.
var locationTokens = []string{
	"section", "paragraph", "line", "topic", "subsection", "heading",
	"table", "figure", "activity", "quiz", "rubric", "citation",
	"reading", "bibliography", "reference", "wlo",
}

// actionVerbs are the verbs that make an item a request rather than an
// observation.
var actionVerbs = []string{
	"add", "remove", "fix", "change", "reduce", "replace", "improve",
	"clarify", "update", "expand", "shorten", "delete", "insert",
	"modify", "correct", "revise", "include", "ensure", "convert",
	"rewrite",
}

var (
	dottedRefPattern   = regexp.MustCompile(`\b\d+\.\d+\b`)
	vagueOpenerPattern = regexp.MustCompile(`^(content|better|more|improve|quality|enhance|overall)\b`)
	wordPattern        = regexp.MustCompile(`[a-z]+`)
)

// FeedbackItem is one feedback demand tagged with the reviewer it came
// from. The tag survives validation and prioritization so the drafting
// agent (and the rejection log) always see who asked for what.
type FeedbackItem struct {
	Reviewer review.Role
	Text     string
}

// Validation is the outcome of checking one feedback item. When the item is
// rejected, Reasons lists every rule it failed, not just the first.
type Validation struct {
	Item     FeedbackItem
	Accepted bool
	Reasons  []string
}

// ValidateFeedback checks one feedback item against all four acceptance
// rules.
func ValidateFeedback(item FeedbackItem) Validation {
	trimmed := strings.TrimSpace(item.Text)
	lowered := strings.ToLower(trimmed)
	words := wordSet(lowered)

	var reasons []string
	if !hasLocation(lowered, words) {
		reasons = append(reasons, "no recognized location reference")
	}
	if !hasAny(words, actionVerbs) {
		reasons = append(reasons, "no recognized action verb")
	}
	if len(trimmed) > maxFeedbackLength {
		reasons = append(reasons, fmt.Sprintf("exceeds %d characters", maxFeedbackLength))
	}
	if vagueOpenerPattern.MatchString(lowered) {
		reasons = append(reasons, "starts with a vague opener")
	}
	return Validation{
		Item:     FeedbackItem{Reviewer: item.Reviewer, Text: trimmed},
		Accepted: len(reasons) == 0,
		Reasons:  reasons,
	}
}

// ValidateBatch filters a list of raw feedback items. It returns the
// accepted items in input order and the full rejection log; both are part
// of the contract, the log is not optional telemetry.
func ValidateBatch(items []FeedbackItem, log *zap.Logger) (accepted []FeedbackItem, rejected []Validation) {
	for _, item := range items {
		v := ValidateFeedback(item)
		if v.Accepted {
			accepted = append(accepted, v.Item)
			continue
		}
		rejected = append(rejected, v)
		if log != nil {
			log.Debug("feedback item rejected",
				zap.String("reviewer", string(v.Item.Reviewer)),
				zap.String("item", v.Item.Text),
				zap.Strings("reasons", v.Reasons),
			)
		}
	}
	return accepted, rejected
}

// Priority tiers for ordering accepted feedback before it reaches the
// drafting agent. Factual problems come first so a truncated revision pass
// still fixes the worst issues.
var priorityTiers = []struct {
	rank     int
	keywords []string
}{
	{0, []string{"incorrect", "wrong", "error", "inaccurate", "missing", "broken"}},
	{1, []string{"unclear", "confusing", "structure", "organization", "contradicts"}},
	{2, []string{"improve", "enhance", "expand", "reduce", "shorten"}},
}

const defaultPriorityRank = 3

// PrioritizeFeedback orders accepted items by severity tier, keeping input
// order within a tier.
func PrioritizeFeedback(items []FeedbackItem) []FeedbackItem {
	ordered := make([]FeedbackItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priorityRank(ordered[i].Text) < priorityRank(ordered[j].Text)
	})
	return ordered
}

func priorityRank(item string) int {
	lowered := strings.ToLower(item)
	for _, tier := range priorityTiers {
		for _, kw := range tier.keywords {
			if strings.Contains(lowered, kw) {
				return tier.rank
			}
		}
	}
	return defaultPriorityRank
}

func hasLocation(lowered string, words map[string]bool) bool {
	if hasAny(words, locationTokens) {
		return true
	}
	return dottedRefPattern.MatchString(lowered)
}

func hasAny(words map[string]bool, candidates []string) bool {
	for _, c := range candidates {
		if words[c] {
			return true
		}
	}
	return false
}

func wordSet(lowered string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(lowered, -1) {
		set[w] = true
	}
	return set
}
