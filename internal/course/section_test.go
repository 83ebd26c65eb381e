package course

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const samplePlan = `- id: 01-overview
  title: Overview
  description: Introduce the week's themes.
  constraints:
    max_words: 600
- id: 02-deep-dive
  title: Deep Dive
  description: Work through the core material.
`

func writePlan(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sections.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	return path
}

func TestLoadPlanAssignsOrdinals(t *testing.T) {
	specs, err := LoadPlan(writePlan(t, samplePlan))
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("len(specs) = %d, want 2", len(specs))
	}
	if specs[0].Ordinal != 1 || specs[1].Ordinal != 2 {
		t.Fatalf("ordinals = %d,%d, want 1,2", specs[0].Ordinal, specs[1].Ordinal)
	}
	if got := specs[0].WordLimit(); got != 600 {
		t.Fatalf("word limit = %d, want 600", got)
	}
	if got := specs[1].WordLimit(); got != 0 {
		t.Fatalf("word limit = %d, want 0 when unset", got)
	}
}

func TestLoadPlanMissingFileIsInputMissing(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, ErrInputMissing) {
		t.Fatalf("err = %v, want ErrInputMissing", err)
	}
}

func TestLoadPlanRejectsDuplicateIDs(t *testing.T) {
	body := `- id: same
  title: One
  description: a
- id: same
  title: Two
  description: b
`
	if _, err := LoadPlan(writePlan(t, body)); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestFilterPlanKeepsOrderAndOrdinals(t *testing.T) {
	specs, err := LoadPlan(writePlan(t, samplePlan))
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	got, err := FilterPlan(specs, []string{"02-deep-dive"})
	if err != nil {
		t.Fatalf("filter plan: %v", err)
	}
	if len(got) != 1 || got[0].ID != "02-deep-dive" {
		t.Fatalf("filtered = %+v, want only 02-deep-dive", got)
	}
	if got[0].Ordinal != 2 {
		t.Fatalf("ordinal = %d, want original 2", got[0].Ordinal)
	}

	all, err := FilterPlan(specs, nil)
	if err != nil {
		t.Fatalf("filter plan with no ids: %v", err)
	}
	if len(all) != len(specs) {
		t.Fatalf("empty filter narrowed the plan: %d != %d", len(all), len(specs))
	}
}

func TestFilterPlanRejectsUnknownID(t *testing.T) {
	specs, err := LoadPlan(writePlan(t, samplePlan))
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if _, err := FilterPlan(specs, []string{"99-missing"}); err == nil {
		t.Fatal("expected unknown section id error")
	}
}

func TestLoadPlanRejectsEmptyPlan(t *testing.T) {
	_, err := LoadPlan(writePlan(t, "[]\n"))
	if !errors.Is(err, ErrInputMissing) {
		t.Fatalf("err = %v, want ErrInputMissing for empty plan", err)
	}
}
