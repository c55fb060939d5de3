// Package labeling уточняет тип повреждения по геометрии рамки и тяжести.
package labeling

import (
	"math"

	"digital-surveyor/internal/taxonomy"
	"digital-surveyor/pkg/geometry"
)

const (
	// ElongatedRatio выше этого соотношения сторон повреждение считается царапиной
	ElongatedRatio = 2.5
	// CompactRatio ниже этого соотношения сторон повреждение считается компактным
	CompactRatio = 2.0
	// DeepSeverity компактное повреждение тяжелее этого порога считается вмятиной
	DeepSeverity = 60
	// ShallowSeverity компактное повреждение легче этого порога считается пятном
	ShallowSeverity = 40
)

// Rule какое правило коррекции сработало
type Rule string

const (
	RuleNone       Rule = "none"
	RuleDegenerate Rule = "degenerate"
	RuleElongated  Rule = "elongated"
	RuleDeep       Rule = "deep-compact"
	RuleShallow    Rule = "shallow-compact"
)

// Correction результат коррекции метки
type Correction struct {
	Kind  taxonomy.DamageKind
	Rule  Rule
	Ratio float64
}

// Changed true, если тип повреждения был заменен
func (c Correction) Changed(original taxonomy.DamageKind) bool {
	return c.Kind != original
}

// AspectRatio отношение большей стороны к меньшей по целочисленным координатам.
// Для вырожденной рамки возвращает false.
func AspectRatio(box geometry.Box) (float64, bool) {
	t := box.Truncated()
	w, h := t.Width(), t.Height()
	if w <= 0 || h <= 0 {
		return 0, false
	}
	return math.Max(w, h) / math.Min(w, h), true
}

// Correct применяет правила по порядку, срабатывает не больше одного
func Correct(kind taxonomy.DamageKind, box geometry.Box, severity int) Correction {
	ratio, ok := AspectRatio(box)
	if !ok {
		return Correction{Kind: kind, Rule: RuleDegenerate}
	}

	switch {
	case ratio > ElongatedRatio:
		// Трещины стекла длинные по природе
		if kind == taxonomy.DamageCrack {
			return Correction{Kind: kind, Rule: RuleNone, Ratio: ratio}
		}
		return Correction{Kind: taxonomy.DamageScratch, Rule: RuleElongated, Ratio: ratio}
	case ratio < CompactRatio && severity > DeepSeverity:
		if kind == taxonomy.DamageShatter {
			return Correction{Kind: kind, Rule: RuleNone, Ratio: ratio}
		}
		return Correction{Kind: taxonomy.DamageDent, Rule: RuleDeep, Ratio: ratio}
	case ratio < CompactRatio && severity < ShallowSeverity:
		if kind == taxonomy.DamageDent || kind == taxonomy.DamageScratch {
			return Correction{Kind: taxonomy.DamageSpot, Rule: RuleShallow, Ratio: ratio}
		}
		return Correction{Kind: kind, Rule: RuleNone, Ratio: ratio}
	}

	return Correction{Kind: kind, Rule: RuleNone, Ratio: ratio}
}
