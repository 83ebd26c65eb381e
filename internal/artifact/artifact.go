// Package artifact persists accepted section documents as markdown files
// with YAML frontmatter. The frontmatter carries the revision provenance a
// human auditor needs: how many iterations the section took, its final
// scores, and whether it was force-approved or rolled back.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/courseforge/courseforge/internal/review"
	"github.com/courseforge/courseforge/internal/revision"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("artifact: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("artifact: malformed frontmatter")
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// Metadata is the provenance block stored in each section document.
type Metadata struct {
	SectionID    string
	Title        string
	Week         int
	Iterations   int
	EditorScore  float64
	StudentScore float64
	Outcome      revision.Outcome
	RolledBack   bool
	WordCount    int
	CreatedAt    time.Time
}

type envelope struct {
	Courseforge envelopeBody `yaml:"courseforge"`
}

type envelopeBody struct {
	Section      string  `yaml:"section"`
	Title        string  `yaml:"title"`
	Week         int     `yaml:"week"`
	Iterations   int     `yaml:"iterations"`
	EditorScore  float64 `yaml:"editor_score"`
	StudentScore float64 `yaml:"student_score"`
	Outcome      string  `yaml:"outcome"`
	RolledBack   bool    `yaml:"rolled_back"`
	WordCount    int     `yaml:"word_count"`
	Created      string  `yaml:"created"`
}

// ParseFrontMatter extracts the metadata block and body from a document
// that starts with `---` YAML fences.
func ParseFrontMatter(content []byte) (Metadata, []byte, error) {
	if len(content) == 0 {
		return Metadata{}, nil, ErrMissingFrontMatter
	}
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return Metadata{}, nil, ErrMissingFrontMatter
	}
	parts := bytes.SplitN(normalized[4:], []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return Metadata{}, nil, ErrMalformedFrontMatter
	}
	var env envelope
	if err := yaml.Unmarshal(parts[0], &env); err != nil {
		return Metadata{}, nil, fmt.Errorf("artifact: parse frontmatter: %w", err)
	}
	if env.Courseforge.Section == "" {
		return Metadata{}, nil, ErrMalformedFrontMatter
	}
	created, err := time.Parse(timeLayout, env.Courseforge.Created)
	if err != nil {
		return Metadata{}, nil, fmt.Errorf("artifact: parse created timestamp: %w", err)
	}
	meta := Metadata{
		SectionID:    env.Courseforge.Section,
		Title:        env.Courseforge.Title,
		Week:         env.Courseforge.Week,
		Iterations:   env.Courseforge.Iterations,
		EditorScore:  env.Courseforge.EditorScore,
		StudentScore: env.Courseforge.StudentScore,
		Outcome:      revision.Outcome(env.Courseforge.Outcome),
		RolledBack:   env.Courseforge.RolledBack,
		WordCount:    env.Courseforge.WordCount,
		CreatedAt:    created.UTC(),
	}
	return meta, bytes.TrimLeft(parts[1], "\n"), nil
}

// WriteFrontMatter renders metadata + body with YAML fences.
func WriteFrontMatter(meta Metadata, body []byte) ([]byte, error) {
	if meta.SectionID == "" {
		return nil, fmt.Errorf("artifact: metadata missing section id")
	}
	env := envelope{Courseforge: envelopeBody{
		Section:      meta.SectionID,
		Title:        meta.Title,
		Week:         meta.Week,
		Iterations:   meta.Iterations,
		EditorScore:  meta.EditorScore,
		StudentScore: meta.StudentScore,
		Outcome:      string(meta.Outcome),
		RolledBack:   meta.RolledBack,
		WordCount:    meta.WordCount,
		Created:      meta.CreatedAt.UTC().Format(timeLayout),
	}}
	data, err := yaml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("artifact: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

// Store manages section document IO rooted at one directory.
type Store struct {
	dir string
	now func() time.Time
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for metadata timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) { s.now = clock }
}

// NewStore builds a store writing into dir.
func NewStore(dir string, opts ...StoreOption) *Store {
	store := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// WriteSection persists one terminal section result and returns the path
// it was written to.
func (s *Store) WriteSection(res revision.SectionResult, week int) (string, error) {
	meta := Metadata{
		SectionID:    res.Spec.ID,
		Title:        res.Spec.Title,
		Week:         week,
		Iterations:   res.Iterations,
		EditorScore:  res.FinalScores[review.RoleEditor],
		StudentScore: res.FinalScores[review.RoleStudent],
		Outcome:      res.Outcome,
		RolledBack:   res.RolledBack,
		WordCount:    res.Draft.WordCount,
		CreatedAt:    s.now(),
	}
	content, err := WriteFrontMatter(meta, []byte(res.Draft.Content))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: ensure %s: %w", s.dir, err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%02d-%s.md", res.Spec.Ordinal, res.Spec.ID))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", path, err)
	}
	return path, nil
}

// ReadSection loads a persisted section document.
func (s *Store) ReadSection(path string) (Metadata, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, nil, fmt.Errorf("artifact: read %s: %w", path, err)
	}
	return ParseFrontMatter(data)
}
