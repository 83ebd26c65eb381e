// Package logbook keeps the human-auditable run journey: one plain-text
// line per notable event, written as it happens. It answers "what did this
// run do and which sections need a human look" without parsing the
// structured logs, so the event vocabulary is fixed and every entry names
// its section where one applies.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook appends journey events to a single plain-text file. A nil
// *Logbook is valid and discards every event, so callers do not guard
// each call.
type Logbook struct {
	path string
	mu   sync.Mutex
}

// New creates a logbook that writes to the provided path.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunStarted records the start of a weekly run.
func (l *Logbook) RunStarted(week, sections int) {
	l.write(LevelInfo, "run_started", "week %d, %d sections", week, sections)
}

// RunCompleted records a successful run and where the output landed.
func (l *Logbook) RunCompleted(path string, words int) {
	l.write(LevelInfo, "run_completed", "%s (%d words)", path, words)
}

// RunFailed records the error that halted the run.
func (l *Logbook) RunFailed(err error) {
	l.write(LevelError, "run_failed", "%v", err)
}

// VerificationUnavailable records that the link verifier could not be
// reached and the run continued without a bibliography.
func (l *Logbook) VerificationUnavailable() {
	l.write(LevelWarn, "verification_unavailable", "drafting without a bibliography")
}

// Iteration records one completed draft-and-review pass.
func (l *Logbook) Iteration(sectionID string, iteration, maxIterations int, combined float64) {
	l.write(LevelInfo, "iteration", "section %s %d/%d, combined score %.1f",
		sectionID, iteration, maxIterations, combined)
}

// SectionApproved records a section both reviewers signed off on.
func (l *Logbook) SectionApproved(sectionID string, iterations int) {
	l.write(LevelInfo, "approved", "section %s after %d iteration(s)", sectionID, iterations)
}

// SectionForceApproved records a section kept despite missing approvals.
// These are the sections a human should read first.
func (l *Logbook) SectionForceApproved(sectionID string, iterations int) {
	l.write(LevelWarn, "force_approved", "section %s kept after %d iteration(s) without both approvals",
		sectionID, iterations)
}

// SectionRolledBack records a section restored to an earlier draft because
// its score degraded.
func (l *Logbook) SectionRolledBack(sectionID string, restoredIteration int, bestScore, currentScore float64) {
	l.write(LevelWarn, "rollback", "section %s restored to iteration %d draft (score fell %.1f -> %.1f)",
		sectionID, restoredIteration, bestScore, currentScore)
}

// Tail returns up to maxLines of the most recent journal entries, oldest
// first. It backs the post-run audit summary.
func (l *Logbook) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}

// write appends one "<timestamp> <level> <event>: <detail>" line. Journal
// write failures are swallowed: the journal must never take down a run.
func (l *Logbook) write(level Level, event, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %-5s %s: %s\n",
		time.Now().UTC().Format(time.RFC3339),
		string(level),
		event,
		strings.TrimSpace(fmt.Sprintf(format, args...)),
	)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}
