// Package taxonomy задает словари деталей, типов повреждений и ремонтных работ
// и нормализацию сырых меток детектора в эти словари.
package taxonomy

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Part нормализованное название детали кузова
type Part string

const (
	PartDoor    Part = "door"
	PartBumper  Part = "bumper"
	PartFender  Part = "fender"
	PartHood    Part = "hood"
	PartGlass   Part = "glass"
	PartUnknown Part = "unknown"
)

// DamageKind нормализованный тип повреждения
type DamageKind string

const (
	DamageDent    DamageKind = "dent"
	DamageCrash   DamageKind = "crash"
	DamageScratch DamageKind = "scratch"
	DamageCrack   DamageKind = "crack"
	DamageShatter DamageKind = "shatter"
	DamageSmash   DamageKind = "smash"
	DamageSpot    DamageKind = "spot"
	DamageUnknown DamageKind = "unknown"
)

// Action рекомендуемая ремонтная работа
type Action string

const (
	ActionBuffing           Action = "Buffing & Polishing"
	ActionDentingPainting   Action = "Denting & Painting"
	ActionSheetMetal        Action = "Sheet Metal Repair"
	ActionPartReplacement   Action = "Part Replacement"
	ActionWindshield        Action = "Windshield Replacement"
	ActionBumperReplacement Action = "Bumper Replacement"
	ActionPolishPaint       Action = "Polish/Paint"
	ActionRepair            Action = "Repair"
	ActionReplace           Action = "Replace"
)

// Actions полный словарь работ
var Actions = []Action{
	ActionBuffing,
	ActionDentingPainting,
	ActionSheetMetal,
	ActionPartReplacement,
	ActionWindshield,
	ActionBumperReplacement,
	ActionPolishPaint,
	ActionRepair,
	ActionReplace,
}

// rule правило нормализации: первая совпавшая подстрока определяет категорию
type rule[T any] struct {
	substrings []string
	category   T
}

var partRules = []rule[Part]{
	{[]string{"door"}, PartDoor},
	{[]string{"bumper"}, PartBumper},
	{[]string{"fender"}, PartFender},
	{[]string{"hood"}, PartHood},
	{[]string{"glass", "windshield"}, PartGlass},
}

// Порядок правил важен: первая совпавшая подстрока побеждает, "glass crack" становится crack.
var damageRules = []rule[DamageKind]{
	{[]string{"crack"}, DamageCrack},
	{[]string{"shatter"}, DamageShatter},
	{[]string{"smash"}, DamageSmash},
	{[]string{"crash"}, DamageCrash},
	{[]string{"dent"}, DamageDent},
	{[]string{"scratch"}, DamageScratch},
	{[]string{"spot", "chip"}, DamageSpot},
}

// NormalizePart приводит сырую метку детектора деталей к словарю
func NormalizePart(label string) Part {
	return match(label, partRules, PartUnknown)
}

// NormalizeDamage приводит сырую метку детектора повреждений к словарю
func NormalizeDamage(label string) DamageKind {
	return match(label, damageRules, DamageUnknown)
}

func match[T any](label string, rules []rule[T], fallback T) T {
	folded := Fold(label)
	for _, r := range rules {
		for _, s := range r.substrings {
			if strings.Contains(folded, s) {
				return r.category
			}
		}
	}
	return fallback
}

// Fold приводит метку к регистронезависимой форме.
// cases.Caser хранит состояние, поэтому создается на каждый вызов.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Title форматирует название для отчета ("front door" -> "Front Door")
func Title(s string) string {
	return cases.Title(language.English).String(s)
}

// UsesDepth true для повреждений, тяжесть которых оценивается по карте глубины
func (k DamageKind) UsesDepth() bool {
	return k == DamageDent || k == DamageCrash
}

// IsGlass true для повреждений стекла
func (k DamageKind) IsGlass() bool {
	return k == DamageCrack || k == DamageShatter || k == DamageSmash
}

// Valid проверяет, что работа входит в словарь
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}
