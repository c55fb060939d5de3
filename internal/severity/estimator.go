// Package severity оценивает тяжесть одного повреждения.
package severity

import (
	"context"
	"image"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"digital-surveyor/internal/taxonomy"
	"digital-surveyor/pkg/models"
)

const (
	// FallbackSeverity тяжесть по умолчанию при любой ошибке и для неглубинных типов
	FallbackSeverity = 50
	// MaxDepthSeverity потолок глубинной оценки, выше остается запас для уточнения
	MaxDepthSeverity = 95
	// StdScale множитель стандартного отклонения нормализованной карты
	StdScale = 4.0
)

// Strategy какой способ оценки применен
type Strategy string

const (
	StrategyDepth Strategy = "depth"
	StrategyFixed Strategy = "fixed"
)

// Reason причина перехода на значение по умолчанию
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonEmptyCrop     Reason = "empty-crop"
	ReasonDepthError    Reason = "depth-error"
	ReasonDegenerateMap Reason = "degenerate-depth-map"
	ReasonNoEstimator   Reason = "no-depth-estimator"
)

// DepthEstimator внешняя модель глубины
type DepthEstimator interface {
	EstimateDepth(ctx context.Context, crop image.Image) (models.DepthMap, error)
}

// Estimate результат оценки тяжести
type Estimate struct {
	Severity int      // Тяжесть 0..100
	Score    float64  // Глубинная оценка 0..1 (0 для фиксированной стратегии)
	Strategy Strategy // Примененная стратегия
	Fallback Reason   // Почему использовано значение по умолчанию
	Depth    models.DepthMap
}

// IsFallback true, если оценка получена из значения по умолчанию
func (e Estimate) IsFallback() bool {
	return e.Fallback != ReasonNone
}

// Estimator выбирает стратегию по типу повреждения
type Estimator struct {
	depth  DepthEstimator
	logger *logrus.Logger
}

// NewEstimator создает оценщик; depth может быть nil, тогда глубинная
// стратегия всегда возвращает значение по умолчанию.
func NewEstimator(depth DepthEstimator, logger *logrus.Logger) *Estimator {
	return &Estimator{depth: depth, logger: logger}
}

// Estimate оценивает тяжесть фрагмента. Никогда не возвращает ошибку.
func (e *Estimator) Estimate(ctx context.Context, kind taxonomy.DamageKind, crop image.Image) Estimate {
	if !kind.UsesDepth() {
		return Estimate{Severity: FallbackSeverity, Strategy: StrategyFixed}
	}

	if crop == nil || crop.Bounds().Empty() {
		return fallback(ReasonEmptyCrop)
	}
	if e.depth == nil {
		return fallback(ReasonNoEstimator)
	}

	depthMap, err := e.depth.EstimateDepth(ctx, crop)
	if err != nil {
		if e.logger != nil {
			e.logger.WithError(err).Warn("Модель глубины вернула ошибку, используем тяжесть по умолчанию")
		}
		return fallback(ReasonDepthError)
	}

	score, ok := UnitScore(depthMap)
	if !ok {
		return fallback(ReasonDegenerateMap)
	}

	return Estimate{
		Severity: ScoreToSeverity(score),
		Score:    score,
		Strategy: StrategyDepth,
		Depth:    depthMap,
	}
}

func fallback(reason Reason) Estimate {
	return Estimate{Severity: FallbackSeverity, Strategy: StrategyDepth, Fallback: reason}
}

// UnitScore нормализует карту глубины по ее собственным min/max и возвращает
// стандартное отклонение ×4, ограниченное [0,1]. Плоская карта дает 0.
// Пустая карта или карта с NaN/Inf считается вырожденной.
func UnitScore(depthMap models.DepthMap) (float64, bool) {
	values := Flatten(depthMap)
	if len(values) == 0 {
		return 0, false
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
	}

	Normalize(values)
	_, variance := stat.PopMeanVariance(values, nil)
	score := math.Sqrt(variance) * StdScale
	return math.Max(0, math.Min(score, 1)), true
}

// ScoreToSeverity переводит оценку 0..1 в целую тяжесть с потолком 95
func ScoreToSeverity(score float64) int {
	return int(math.Min(score*100, MaxDepthSeverity))
}

// Flatten разворачивает карту в один срез
func Flatten(depthMap models.DepthMap) []float64 {
	n := 0
	for _, row := range depthMap {
		n += len(row)
	}
	values := make([]float64, 0, n)
	for _, row := range depthMap {
		values = append(values, row...)
	}
	return values
}

// Normalize приводит значения к [0,1] на месте; плоский срез обнуляется
func Normalize(values []float64) {
	if len(values) == 0 {
		return
	}
	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo
	if span == 0 {
		for i := range values {
			values[i] = 0
		}
		return
	}
	floats.AddConst(-lo, values)
	floats.Scale(1/span, values)
}
