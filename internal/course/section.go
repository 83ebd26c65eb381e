// Package course defines the section plan: the ordered list of content
// units a weekly run must produce. Section specs are read once during
// planning and are read-only afterwards.
package course

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ErrInputMissing marks a required upstream artifact that is absent. It is
// fatal for the run; callers surface it immediately and emit no partial
// output.
var ErrInputMissing = errors.New("course: required input missing")

// SectionSpec describes one content unit. Immutable once the plan loads.
type SectionSpec struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Ordinal     int            `yaml:"-"`
	Constraints map[string]any `yaml:"constraints,omitempty"`
}

// WordLimit returns the section's word cap constraint, or 0 when none is set.
func (s SectionSpec) WordLimit() int {
	if s.Constraints == nil {
		return 0
	}
	return cast.ToInt(s.Constraints["max_words"])
}

// LoadPlan reads the ordered section plan from a YAML file. Ordinals are
// assigned from file position, starting at 1.
func LoadPlan(path string) ([]SectionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: section plan %s", ErrInputMissing, path)
		}
		return nil, fmt.Errorf("course: read section plan: %w", err)
	}
	var specs []SectionSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("course: parse section plan: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: section plan %s is empty", ErrInputMissing, path)
	}
	seen := make(map[string]bool, len(specs))
	for i := range specs {
		specs[i].ID = strings.TrimSpace(specs[i].ID)
		specs[i].Title = strings.TrimSpace(specs[i].Title)
		specs[i].Ordinal = i + 1
		if err := specs[i].validate(i); err != nil {
			return nil, err
		}
		if seen[specs[i].ID] {
			return nil, fmt.Errorf("course: duplicate section id %q", specs[i].ID)
		}
		seen[specs[i].ID] = true
	}
	return specs, nil
}

// FilterPlan narrows a plan to the named section ids, keeping plan order.
// Ordinals are preserved so partial runs still slot into the full week.
func FilterPlan(specs []SectionSpec, ids []string) ([]SectionSpec, error) {
	if len(ids) == 0 {
		return specs, nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[strings.TrimSpace(id)] = true
	}
	var out []SectionSpec
	for _, spec := range specs {
		if wanted[spec.ID] {
			out = append(out, spec)
			delete(wanted, spec.ID)
		}
	}
	for id := range wanted {
		return nil, fmt.Errorf("course: section %q is not in the plan", id)
	}
	return out, nil
}

// ReadTextInput loads an auxiliary text input (guidelines, raw
// bibliography). A missing file maps to ErrInputMissing.
func ReadTextInput(path, name string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s at %s", ErrInputMissing, name, path)
		}
		return "", fmt.Errorf("course: read %s: %w", name, err)
	}
	return string(data), nil
}

func (s SectionSpec) validate(index int) error {
	if s.ID == "" {
		return fmt.Errorf("course: sections[%d]: id is required", index)
	}
	if s.Title == "" {
		return fmt.Errorf("course: sections[%d]: title is required", index)
	}
	if strings.TrimSpace(s.Description) == "" {
		return fmt.Errorf("course: sections[%d]: description is required", index)
	}
	return nil
}
