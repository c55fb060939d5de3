package taxonomy

import "testing"

func TestNormalizePart(t *testing.T) {
	tests := []struct {
		label string
		want  Part
	}{
		{"front_door", PartDoor},
		{"Rear Door Left", PartDoor},
		{"BUMPER", PartBumper},
		{"front-fender", PartFender},
		{"hood", PartHood},
		{"Windshield", PartGlass},
		{"back_glass", PartGlass},
		{"headlight", PartUnknown},
		{"", PartUnknown},
	}
	for _, tt := range tests {
		if got := NormalizePart(tt.label); got != tt.want {
			t.Errorf("NormalizePart(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestNormalizeDamage(t *testing.T) {
	tests := []struct {
		label string
		want  DamageKind
	}{
		{"dent", DamageDent},
		{"Major Dent", DamageDent},
		{"scratch", DamageScratch},
		{"glass crack", DamageCrack},
		{"crack over dent", DamageCrack},
		{"glass shatter", DamageShatter},
		{"smash", DamageSmash},
		{"car crash", DamageCrash},
		{"paint chip", DamageSpot},
		{"spot", DamageSpot},
		{"lamp broken", DamageUnknown},
	}
	for _, tt := range tests {
		if got := NormalizeDamage(tt.label); got != tt.want {
			t.Errorf("NormalizeDamage(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestDamageKindGroups(t *testing.T) {
	for _, k := range []DamageKind{DamageDent, DamageCrash} {
		if !k.UsesDepth() {
			t.Errorf("%s should use depth", k)
		}
	}
	for _, k := range []DamageKind{DamageScratch, DamageSpot, DamageCrack, DamageUnknown} {
		if k.UsesDepth() {
			t.Errorf("%s should not use depth", k)
		}
	}
	for _, k := range []DamageKind{DamageCrack, DamageShatter, DamageSmash} {
		if !k.IsGlass() {
			t.Errorf("%s should be glass damage", k)
		}
	}
	if DamageDent.IsGlass() {
		t.Error("dent is not glass damage")
	}
}

func TestTitleAndActions(t *testing.T) {
	if got := Title("front door"); got != "Front Door" {
		t.Errorf("Title = %q", got)
	}
	if !ActionSheetMetal.Valid() {
		t.Error("known action reported invalid")
	}
	if Action("Magic Fix").Valid() {
		t.Error("unknown action reported valid")
	}
}
