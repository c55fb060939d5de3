package pricing

import (
	"testing"

	"digital-surveyor/internal/taxonomy"
)

func TestDetailedLadder(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		action taxonomy.Action
		cost   float64
	}{
		{"light damage", Input{Severity: 10, Kind: taxonomy.DamageScratch, Part: taxonomy.PartDoor}, taxonomy.ActionBuffing, 2000},
		{"boundary 25", Input{Severity: 25, Kind: taxonomy.DamageScratch, Part: taxonomy.PartDoor}, taxonomy.ActionBuffing, 2000},
		{"moderate", Input{Severity: 55, Kind: taxonomy.DamageDent, Part: taxonomy.PartFender}, taxonomy.ActionDentingPainting, 6000},
		{"serious", Input{Severity: 60, Kind: taxonomy.DamageDent, Part: taxonomy.PartDoor}, taxonomy.ActionSheetMetal, 12000},
		{"door replacement", Input{Severity: 90, Kind: taxonomy.DamageDent, Part: taxonomy.PartDoor}, taxonomy.ActionPartReplacement, 18000},
		{"hood replacement", Input{Severity: 76, Kind: taxonomy.DamageDent, Part: taxonomy.PartHood}, taxonomy.ActionPartReplacement, 25000},
		{"fender replacement", Input{Severity: 95, Kind: taxonomy.DamageCrash, Part: taxonomy.PartFender}, taxonomy.ActionPartReplacement, 14000},
		{"unknown replacement", Input{Severity: 80, Kind: taxonomy.DamageDent, Part: taxonomy.PartUnknown}, taxonomy.ActionPartReplacement, 20000},
		{"glass part low severity", Input{Severity: 5, Kind: taxonomy.DamageScratch, Part: taxonomy.PartGlass}, taxonomy.ActionWindshield, 12000},
		{"glass kind on door", Input{Severity: 90, Kind: taxonomy.DamageShatter, Part: taxonomy.PartDoor}, taxonomy.ActionWindshield, 12000},
		{"bumper override", Input{Severity: 61, Kind: taxonomy.DamageDent, Part: taxonomy.PartBumper}, taxonomy.ActionBumperReplacement, 15000},
		{"bumper under override", Input{Severity: 60, Kind: taxonomy.DamageDent, Part: taxonomy.PartBumper}, taxonomy.ActionSheetMetal, 12000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detailed{}.Decide(tt.in, 1.0)
			if got.Action != tt.action || got.Cost != tt.cost {
				t.Errorf("got %s/%v, want %s/%v", got.Action, got.Cost, tt.action, tt.cost)
			}
			if !got.Action.Valid() {
				t.Errorf("action %q outside vocabulary", got.Action)
			}
		})
	}
}

func TestMultiplier(t *testing.T) {
	got := Detailed{}.Decide(Input{Severity: 10, Part: taxonomy.PartDoor}, 2.5)
	if got.BaseCost != 2000 || got.Cost != 5000 {
		t.Fatalf("unexpected decision %+v", got)
	}
	got = Detailed{}.Decide(Input{Severity: 10, Part: taxonomy.PartDoor}, 0.3)
	if got.Cost != 2000 {
		t.Fatalf("multiplier below 1 must not discount, got %+v", got)
	}
}

func TestCoarse(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		action taxonomy.Action
		cost   float64
	}{
		{"small shallow dent", Input{Kind: taxonomy.DamageDent, Part: taxonomy.PartDoor, PartShare: 0.1, DepthScore: 0.2}, taxonomy.ActionRepair, 200},
		{"large share", Input{Kind: taxonomy.DamageScratch, Part: taxonomy.PartHood, PartShare: 0.3}, taxonomy.ActionReplace, 1100},
		{"deep dent", Input{Kind: taxonomy.DamageDent, Part: taxonomy.PartFender, DepthScore: 0.7}, taxonomy.ActionReplace, 500},
		{"broken glass", Input{Kind: taxonomy.DamageCrack, Part: taxonomy.PartGlass}, taxonomy.ActionReplace, 600},
		{"glass scuff", Input{Kind: taxonomy.DamageScratch, Part: taxonomy.PartGlass}, taxonomy.ActionRepair, 150},
		{"unknown part", Input{Kind: taxonomy.DamageDent, Part: taxonomy.PartUnknown}, taxonomy.ActionRepair, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coarse{}.Decide(tt.in, 1.0)
			if got.Action != tt.action || got.Cost != tt.cost {
				t.Errorf("got %s/%v, want %s/%v", got.Action, got.Cost, tt.action, tt.cost)
			}
		})
	}
}

func TestNewStrategy(t *testing.T) {
	tests := []struct {
		name     string
		want     string
		currency string
		wantErr  bool
	}{
		{"", StrategyDetailed, "INR", false},
		{"detailed", StrategyDetailed, "INR", false},
		{" Coarse ", StrategyCoarse, "USD", false},
		{"fuzzy", "", "", true},
	}
	for _, tt := range tests {
		s, err := NewStrategy(tt.name)
		if (err != nil) != tt.wantErr {
			t.Fatalf("NewStrategy(%q) error = %v", tt.name, err)
		}
		if err == nil && (s.Name() != tt.want || s.Currency() != tt.currency) {
			t.Errorf("NewStrategy(%q) = %s/%s", tt.name, s.Name(), s.Currency())
		}
	}
}

func TestVehicle(t *testing.T) {
	tests := []struct {
		car        string
		luxury     bool
		multiplier float64
	}{
		{"BMW X5", true, 2.5},
		{"Land Rover Defender", true, 2.5},
		{"mercedes-benz c200", true, 2.5},
		{"Toyota Corolla", false, 1.0},
		{"", false, 1.0},
	}
	for _, tt := range tests {
		got := Vehicle(tt.car)
		if got.IsLuxury != tt.luxury || got.PriceMultiplier != tt.multiplier {
			t.Errorf("Vehicle(%q) = %+v", tt.car, got)
		}
	}
}

func TestTotal(t *testing.T) {
	total := Total([]Decision{{Cost: 2000}, {Cost: 12000}, {Cost: 5000}})
	if total != 19000 {
		t.Fatalf("total = %v", total)
	}
	if Total(nil) != 0 {
		t.Fatal("empty total must be zero")
	}
}

func TestPartBaseCost(t *testing.T) {
	tests := map[string]float64{
		"Front Door":         12000,
		"rear bumper":        8000,
		"hood":               15000,
		"Rear Quarter Panel": 18000,
		"left headlight":     5000,
		"Taillight":          4000,
		"side mirror":        3000,
		"glass":              DefaultPartBaseCost,
		"":                   DefaultPartBaseCost,
	}
	for part, want := range tests {
		if got := PartBaseCost(part); got != want {
			t.Errorf("PartBaseCost(%q) = %v, want %v", part, got, want)
		}
	}
}

func TestRefinementBaseCost(t *testing.T) {
	tests := []struct {
		strategy Strategy
		part     string
		want     float64
	}{
		{Detailed{}, "Rear Quarter Panel", 18000},
		{Detailed{}, "door", 12000},
		{Detailed{}, "left headlight", 5000},
		{Detailed{}, "", DefaultPartBaseCost},
		{Coarse{}, "Front Door", 450},
		{Coarse{}, "hood", 550},
		{Coarse{}, "Rear Quarter Panel", 175},
		{Coarse{}, "", 175},
	}
	for _, tt := range tests {
		if got := tt.strategy.RefinementBaseCost(tt.part); got != tt.want {
			t.Errorf("%s.RefinementBaseCost(%q) = %v, want %v", tt.strategy.Name(), tt.part, got, tt.want)
		}
	}
}
