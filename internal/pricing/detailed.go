package pricing

import "digital-surveyor/internal/taxonomy"

// Базовые цены подробного набора правил (INR)
const (
	WindshieldCost      = 12000
	BumperReplaceCost   = 15000
	BuffingCost         = 2000
	DentingPaintingCost = 6000
	SheetMetalCost      = 12000
	DefaultReplaceCost  = 20000
)

// BumperOverrideSeverity выше этой тяжести бампер меняется целиком
const BumperOverrideSeverity = 60

var replacementCost = map[taxonomy.Part]float64{
	taxonomy.PartDoor:   18000,
	taxonomy.PartBumper: 15000,
	taxonomy.PartFender: 14000,
	taxonomy.PartHood:   25000,
}

// Detailed учитывает тяжесть, тип и деталь
type Detailed struct{}

func (Detailed) Name() string     { return StrategyDetailed }
func (Detailed) Currency() string { return "INR" }

// RefinementBaseCost берет цену из таблицы деталей по сырому названию
func (Detailed) RefinementBaseCost(partLabel string) float64 { return PartBaseCost(partLabel) }

// Decide сначала проверяет стекло и бампер, затем пороги тяжести
func (Detailed) Decide(in Input, multiplier float64) Decision {
	if in.Part == taxonomy.PartGlass || in.Kind.IsGlass() {
		return applyMultiplier(taxonomy.ActionWindshield, WindshieldCost, multiplier)
	}
	if in.Part == taxonomy.PartBumper && in.Severity > BumperOverrideSeverity {
		return applyMultiplier(taxonomy.ActionBumperReplacement, BumperReplaceCost, multiplier)
	}

	switch {
	case in.Severity <= 25:
		return applyMultiplier(taxonomy.ActionBuffing, BuffingCost, multiplier)
	case in.Severity <= 55:
		return applyMultiplier(taxonomy.ActionDentingPainting, DentingPaintingCost, multiplier)
	case in.Severity <= 75:
		return applyMultiplier(taxonomy.ActionSheetMetal, SheetMetalCost, multiplier)
	}

	cost, ok := replacementCost[in.Part]
	if !ok {
		cost = DefaultReplaceCost
	}
	return applyMultiplier(taxonomy.ActionPartReplacement, cost, multiplier)
}
