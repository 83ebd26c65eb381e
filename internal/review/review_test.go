package review

import (
	"testing"

	"go.uber.org/zap"
)

func TestNormalizeAspectsCanonicalizesKeys(t *testing.T) {
	raw := map[string]float64{
		" Clarity ":     8,
		"WLO Alignment": 6,
		"flow":          9,
	}
	got := NormalizeAspects(raw, RoleEditor, zap.NewNop())
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got["clarity"] != 8 {
		t.Fatalf("clarity = %v, want 8", got["clarity"])
	}
	if got["wlo_alignment"] != 6 {
		t.Fatalf("wlo_alignment = %v, want 6", got["wlo_alignment"])
	}
}

func TestNormalizeAspectsKeepsUnknownKeys(t *testing.T) {
	got := NormalizeAspects(map[string]float64{"pizzazz": 4}, RoleStudent, zap.NewNop())
	if got["pizzazz"] != 4 {
		t.Fatalf("unknown aspect dropped; vocabulary is semi-open")
	}
}

func TestNormalizeAspectsEmptyInput(t *testing.T) {
	if got := NormalizeAspects(nil, RoleEditor, zap.NewNop()); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}
