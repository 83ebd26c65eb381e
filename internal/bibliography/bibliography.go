// Package bibliography turns the raw syllabus reference list into the
// verified set the drafting agent is allowed to cite. Entries whose links
// cannot be confirmed are withheld for the run, never deleted from the
// source file.
package bibliography

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

// ErrVerificationUnavailable marks a batch where the link verifier itself
// failed. The filter fails closed: nothing is treated as verified, and the
// caller decides whether to continue with an empty bibliography.
var ErrVerificationUnavailable = errors.New("bibliography: link verification unavailable")

// Entry is one reference from the raw list, annotated with the URLs found
// in it and whether every one of them resolved.
type Entry struct {
	Text     string
	URLs     []string
	Verified bool
}

// Verifier checks a batch of URLs. Satisfied by links.Checker.
type Verifier interface {
	Verify(ctx context.Context, urls []string) (map[string]bool, error)
}

// urlPattern matches http(s) URLs and bare www. hosts. A match stops at
// whitespace or a closing parenthesis so markdown link syntax does not
// absorb trailing text.
var urlPattern = regexp.MustCompile(`https?://[^\s)]+|www\.[^\s)]+`)

const trailingPunct = ".,;:!?'\"" + "`"

// Filter verifies and formats bibliography entries.
type Filter struct {
	verifier Verifier
	log      *zap.Logger
}

// NewFilter builds a Filter around the given verifier.
func NewFilter(verifier Verifier, log *zap.Logger) *Filter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Filter{verifier: verifier, log: log}
}

// ParseEntries splits the raw bibliography text into entries, one per
// non-blank line.
func ParseEntries(raw string) []string {
	var entries []string
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			entries = append(entries, trimmed)
		}
	}
	return entries
}

// ExtractURLs returns the distinct URLs found in one entry, in order of
// first appearance. Plain-text matches and markdown link destinations are
// both collected. Bare www. hosts are given an https scheme so the verifier
// can actually probe them; non-web markdown destinations (relative paths,
// mailto) are ignored.
func ExtractURLs(entry string) []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(raw string) {
		cleaned := strings.TrimRight(strings.TrimSpace(raw), trailingPunct)
		if cleaned == "" {
			return
		}
		if !strings.HasPrefix(cleaned, "http://") && !strings.HasPrefix(cleaned, "https://") {
			if !strings.HasPrefix(cleaned, "www.") {
				return
			}
			cleaned = "https://" + cleaned
		}
		if seen[cleaned] {
			return
		}
		seen[cleaned] = true
		urls = append(urls, cleaned)
	}
	for _, match := range urlPattern.FindAllString(entry, -1) {
		add(match)
	}
	for _, dest := range markdownLinkTargets(entry) {
		add(dest)
	}
	return urls
}

// markdownLinkTargets parses the entry as markdown and collects link
// destinations, catching URLs the plain-text pattern cannot see (for
// example angle-bracket autolinks).
func markdownLinkTargets(entry string) []string {
	source := []byte(entry)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	var targets []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			targets = append(targets, string(node.Destination))
		case *ast.AutoLink:
			targets = append(targets, string(node.URL(source)))
		}
		return ast.WalkContinue, nil
	})
	return targets
}

// FilterAndFormat verifies every entry's URLs in one batch and returns the
// formatted block for the drafting agent plus the annotated entry set.
//
// Entries with no URLs are always retained. An entry with URLs survives
// only if all of them verify; partial verification does not count. When the
// verifier itself fails, the returned error wraps ErrVerificationUnavailable
// and the verified set is empty — the formatted text still renders (as the
// no-bibliography fallback) so the caller can continue the run.
func (f *Filter) FilterAndFormat(ctx context.Context, rawEntries []string) (string, []Entry, error) {
	entries := make([]Entry, 0, len(rawEntries))
	var batch []string
	for _, raw := range rawEntries {
		e := Entry{Text: raw, URLs: ExtractURLs(raw)}
		batch = append(batch, e.URLs...)
		entries = append(entries, e)
	}

	var status map[string]bool
	if len(batch) > 0 {
		var err error
		status, err = f.verifier.Verify(ctx, batch)
		if err != nil {
			f.log.Warn("link verification failed, withholding entire bibliography", zap.Error(err))
			return Format(nil, 0), nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
		}
	}

	var verified []Entry
	filteredOut := 0
	for i := range entries {
		entries[i].Verified = allOK(entries[i].URLs, status)
		if entries[i].Verified {
			verified = append(verified, entries[i])
		} else {
			filteredOut++
			f.log.Info("bibliography entry filtered out",
				zap.String("entry", entries[i].Text),
				zap.Strings("urls", entries[i].URLs),
			)
		}
	}
	return Format(verified, filteredOut), verified, nil
}

func allOK(urls []string, status map[string]bool) bool {
	for _, u := range urls {
		if !status[u] {
			return false
		}
	}
	return true
}

// Format renders the verified set into the block handed to the drafting
// agent.
func Format(verified []Entry, filteredOut int) string {
	var b strings.Builder
	if len(verified) == 0 {
		b.WriteString("NO BIBLIOGRAPHY AVAILABLE\n\n")
		b.WriteString("No verified references are available for this section. ")
		b.WriteString("Rely on the web resources provided instead, and do not fabricate references.\n")
		return b.String()
	}

	b.WriteString("VERIFIED BIBLIOGRAPHY (cite only from this list):\n\n")
	for i, e := range verified {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e.Text)
	}
	if filteredOut == 1 {
		b.WriteString("\nNote: 1 reference with unreachable links was filtered out.\n")
	} else if filteredOut > 1 {
		fmt.Fprintf(&b, "\nNote: %d references with unreachable links were filtered out.\n", filteredOut)
	}
	b.WriteString("\nUSAGE REQUIREMENTS:\n")
	b.WriteString("- Cite only entries from the list above.\n")
	b.WriteString("- Copy URLs exactly as written; never modify them.\n")
	b.WriteString("- Never invent additional references.\n")
	return b.String()
}
