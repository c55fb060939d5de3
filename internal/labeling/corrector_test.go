package labeling

import (
	"testing"

	"digital-surveyor/internal/taxonomy"
	"digital-surveyor/pkg/geometry"
)

func TestCorrect(t *testing.T) {
	tests := []struct {
		name     string
		kind     taxonomy.DamageKind
		box      geometry.Box
		severity int
		want     taxonomy.DamageKind
		rule     Rule
	}{
		{"long box becomes scratch", taxonomy.DamageDent, geometry.NewBox(0, 0, 200, 40), 70, taxonomy.DamageScratch, RuleElongated},
		{"long glass crack kept", taxonomy.DamageCrack, geometry.NewBox(0, 0, 200, 40), 70, taxonomy.DamageCrack, RuleNone},
		{"deep compact becomes dent", taxonomy.DamageScratch, geometry.NewBox(0, 0, 50, 45), 80, taxonomy.DamageDent, RuleDeep},
		{"deep compact shatter kept", taxonomy.DamageShatter, geometry.NewBox(0, 0, 50, 45), 80, taxonomy.DamageShatter, RuleNone},
		{"shallow scratch becomes spot", taxonomy.DamageScratch, geometry.NewBox(0, 0, 50, 45), 20, taxonomy.DamageSpot, RuleShallow},
		{"shallow dent becomes spot", taxonomy.DamageDent, geometry.NewBox(0, 0, 45, 50), 39, taxonomy.DamageSpot, RuleShallow},
		{"shallow crash kept", taxonomy.DamageCrash, geometry.NewBox(0, 0, 50, 45), 20, taxonomy.DamageCrash, RuleNone},
		{"moderate compact kept", taxonomy.DamageScratch, geometry.NewBox(0, 0, 50, 45), 50, taxonomy.DamageScratch, RuleNone},
		{"middle ratio kept", taxonomy.DamageDent, geometry.NewBox(0, 0, 90, 40), 90, taxonomy.DamageDent, RuleNone},
		{"degenerate passes through", taxonomy.DamageDent, geometry.NewBox(10, 10, 10, 50), 90, taxonomy.DamageDent, RuleDegenerate},
		{"sub-pixel width truncates to degenerate", taxonomy.DamageDent, geometry.NewBox(10.2, 0, 10.9, 50), 90, taxonomy.DamageDent, RuleDegenerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Correct(tt.kind, tt.box, tt.severity)
			if got.Kind != tt.want {
				t.Errorf("kind = %s, want %s", got.Kind, tt.want)
			}
			if got.Rule != tt.rule {
				t.Errorf("rule = %s, want %s", got.Rule, tt.rule)
			}
		})
	}
}

func TestAspectRatio(t *testing.T) {
	ratio, ok := AspectRatio(geometry.NewBox(0, 0, 200, 40))
	if !ok || ratio != 5.0 {
		t.Fatalf("expected 5.0, got %v (%v)", ratio, ok)
	}
	// 49.9 усекается до 49
	ratio, ok = AspectRatio(geometry.NewBox(0, 0, 98, 49.9))
	if !ok || ratio != 2.0 {
		t.Fatalf("expected 2.0 after truncation, got %v", ratio)
	}
}

func TestCorrectionChanged(t *testing.T) {
	c := Correct(taxonomy.DamageDent, geometry.NewBox(0, 0, 200, 40), 70)
	if !c.Changed(taxonomy.DamageDent) {
		t.Error("expected change to be reported")
	}
}
