package domain

import "testing"

func TestKnownEnumValues(t *testing.T) {
	tests := []struct {
		name  string
		check func(string) bool
		value string
		want  bool
	}{
		{"stage new", IsKnownStage, StageNew, true},
		{"stage closed won", IsKnownStage, StageClosedWon, true},
		{"stage lowercase rejected", IsKnownStage, "new", false},
		{"stage unknown", IsKnownStage, "ARCHIVED", false},
		{"stage empty", IsKnownStage, "", false},
		{"label warm", IsKnownLabel, LabelWarm, true},
		{"label unknown", IsKnownLabel, "LUKEWARM", false},
		{"type wholesale", IsKnownType, TypeWholesale, true},
		{"type unknown", IsKnownType, "COMPANY", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.check(tc.value); got != tc.want {
				t.Errorf("check(%q) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestIsTerminalStage(t *testing.T) {
	for _, stage := range []string{StageClosedWon, StageClosedLost} {
		if !IsTerminalStage(stage) {
			t.Errorf("IsTerminalStage(%q) = false, want true", stage)
		}
	}
	for _, stage := range []string{StageNew, StageContacted, StageQualified, StageHot, StageProposal, StageNegotiation} {
		if IsTerminalStage(stage) {
			t.Errorf("IsTerminalStage(%q) = true, want false", stage)
		}
	}
}

func TestInitialStateIsKnown(t *testing.T) {
	if !IsKnownStage(InitialStage) {
		t.Errorf("initial stage %q is not a known stage", InitialStage)
	}
	if !IsKnownLabel(InitialLabel) {
		t.Errorf("initial label %q is not a known label", InitialLabel)
	}
	if !IsKnownType(InitialType) {
		t.Errorf("initial type %q is not a known type", InitialType)
	}
	if IsTerminalStage(InitialStage) {
		t.Error("initial stage must not be terminal")
	}
}
