// Package pricing выбирает ремонтную работу и ее стоимость.
package pricing

import (
	"fmt"
	"strings"

	"digital-surveyor/internal/taxonomy"
	"digital-surveyor/pkg/models"
)

// Названия наборов правил
const (
	StrategyDetailed = "detailed"
	StrategyCoarse   = "coarse"
)

// Input данные одного повреждения для решения
type Input struct {
	Severity   int                 // Тяжесть 0..100
	Kind       taxonomy.DamageKind // Скорректированный тип
	Part       taxonomy.Part       // Деталь кузова
	PartShare  float64             // Доля площади детали под повреждением
	DepthScore float64             // Глубинная оценка 0..1
}

// Decision выбранная работа и стоимость
type Decision struct {
	Action   taxonomy.Action
	BaseCost float64
	Cost     float64
}

// Strategy набор правил выбора работы
type Strategy interface {
	Name() string
	Currency() string
	Decide(in Input, multiplier float64) Decision
	// RefinementBaseCost базовая цена детали для уточнения в валюте набора правил
	RefinementBaseCost(partLabel string) float64
}

// NewStrategy возвращает набор правил по имени из конфигурации
func NewStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyDetailed:
		return Detailed{}, nil
	case StrategyCoarse:
		return Coarse{}, nil
	default:
		return nil, fmt.Errorf("unknown assessment strategy %q", name)
	}
}

// applyMultiplier умножает базовую цену; множитель меньше 1 не применяется
func applyMultiplier(action taxonomy.Action, base, multiplier float64) Decision {
	if multiplier < 1 {
		multiplier = 1
	}
	return Decision{Action: action, BaseCost: base, Cost: base * multiplier}
}

// Total суммирует стоимость всех повреждений скана
func Total(decisions []Decision) float64 {
	total := 0.0
	for _, d := range decisions {
		total += d.Cost
	}
	return total
}

const (
	// LuxuryMultiplier наценка для премиальных марок
	LuxuryMultiplier = 2.5
	// StandardMultiplier множитель для остальных автомобилей
	StandardMultiplier = 1.0
)

var luxuryBrands = []string{"bmw", "mercedes", "audi", "lexus", "porsche", "jaguar", "land rover"}

// Vehicle определяет ценовой множитель по названию автомобиля
func Vehicle(carName string) models.VehicleInfo {
	folded := taxonomy.Fold(carName)
	for _, brand := range luxuryBrands {
		if strings.Contains(folded, brand) {
			return models.VehicleInfo{CarName: carName, IsLuxury: true, PriceMultiplier: LuxuryMultiplier}
		}
	}
	return models.VehicleInfo{CarName: carName, PriceMultiplier: StandardMultiplier}
}
