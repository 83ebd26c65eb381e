// Package assemble compiles accepted sections into the weekly document.
// Assembly runs only after every section has reached a terminal state; a
// partial week is never written.
package assemble

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/courseforge/courseforge/internal/bibliography"
	"github.com/courseforge/courseforge/internal/revision"
)

// Week renders the full weekly document from terminal section results, in
// section order. Cited URLs are deduplicated into a closing references
// list, and the assembled markdown is parse-checked before it is returned.
func Week(week int, results []revision.SectionResult) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("assemble: no sections to assemble")
	}
	for _, res := range results {
		if res.Outcome == "" {
			return "", fmt.Errorf("assemble: section %s has not reached a terminal state", res.Spec.ID)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Week %d\n\n", week)
	var citations []string
	seen := make(map[string]bool)
	for _, res := range results {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", res.Spec.Title, strings.TrimSpace(res.Draft.Content))
		for _, url := range bibliography.ExtractURLs(res.Draft.Content) {
			if !seen[url] {
				seen[url] = true
				citations = append(citations, url)
			}
		}
	}
	if len(citations) > 0 {
		b.WriteString("## References\n\n")
		for _, url := range citations {
			fmt.Fprintf(&b, "- %s\n", url)
		}
	}

	assembled := b.String()
	if err := goldmark.Convert([]byte(assembled), &bytes.Buffer{}); err != nil {
		return "", fmt.Errorf("assemble: week %d does not parse as markdown: %w", week, err)
	}
	return assembled, nil
}

// WriteWeek stores the assembled document under dir and returns its path.
func WriteWeek(dir string, week int, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("assemble: ensure %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("week_%02d.md", week))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("assemble: write %s: %w", path, err)
	}
	return path, nil
}
