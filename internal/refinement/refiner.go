// Package refinement пересчитывает тяжесть повреждения по трем снимкам крупного плана.
package refinement

import (
	"context"
	"image"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"digital-surveyor/internal/severity"
	"digital-surveyor/internal/taxonomy"
)

// Angles количество ракурсов уточнения
const Angles = 3

// Уровни согласия ракурсов
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Множители базовой цены для упрощенной лестницы работ
const (
	ReplaceFactor = 2.0
	RepairFactor  = 1.0
	PolishFactor  = 0.5
)

// Verdict итог уточнения
type Verdict struct {
	SeverityScores [Angles]int
	FinalSeverity  int
	Action         taxonomy.Action
	Cost           float64
	Confidence     string
	StdDeviation   float64
	Fallbacks      [Angles]severity.Reason // Причина подстановки по каждому ракурсу
}

// Refiner оценивает три ракурса одного повреждения
type Refiner struct {
	estimator *severity.Estimator
	logger    *logrus.Logger
}

// NewRefiner создает сервис уточнения
func NewRefiner(estimator *severity.Estimator, logger *logrus.Logger) *Refiner {
	return &Refiner{estimator: estimator, logger: logger}
}

// Refine оценивает ракурсы по очереди. Неудачный ракурс получает целое среднее
// уже посчитанных оценок или 50, если их еще нет.
func (r *Refiner) Refine(ctx context.Context, images [Angles]image.Image, kind taxonomy.DamageKind, baseCost float64) Verdict {
	var v Verdict
	scores := make([]int, 0, Angles)

	for i, img := range images {
		est := r.estimator.Estimate(ctx, kind, img)
		score := est.Severity
		if est.IsFallback() {
			score = runningMean(scores)
			v.Fallbacks[i] = est.Fallback
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{
					"angle":      i,
					"reason":     est.Fallback,
					"substitute": score,
				}).Warn("Ракурс не оценен, подставлено среднее")
			}
		}
		scores = append(scores, score)
		v.SeverityScores[i] = score
	}

	v.FinalSeverity, v.StdDeviation = Summarize(v.SeverityScores)
	v.Confidence = ConfidenceFor(v.StdDeviation)
	v.Action, v.Cost = Ladder(v.FinalSeverity, baseCost)
	return v
}

func runningMean(scores []int) int {
	if len(scores) == 0 {
		return severity.FallbackSeverity
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return sum / len(scores)
}

// Summarize целое среднее и популяционное стандартное отклонение оценок
func Summarize(scores [Angles]int) (int, float64) {
	values := make([]float64, Angles)
	sum := 0
	for i, s := range scores {
		values[i] = float64(s)
		sum += s
	}
	_, variance := stat.PopMeanVariance(values, nil)
	return sum / Angles, math.Sqrt(variance)
}

// ConfidenceFor уровень согласия ракурсов по разбросу оценок
func ConfidenceFor(std float64) string {
	switch {
	case std < 10:
		return ConfidenceHigh
	case std < 20:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Ladder упрощенная лестница работ, стоимость усекается до целого
func Ladder(finalSeverity int, baseCost float64) (taxonomy.Action, float64) {
	switch {
	case finalSeverity > 75:
		return taxonomy.ActionPartReplacement, math.Trunc(baseCost * ReplaceFactor)
	case finalSeverity > 50:
		return taxonomy.ActionSheetMetal, math.Trunc(baseCost * RepairFactor)
	default:
		return taxonomy.ActionPolishPaint, math.Trunc(baseCost * PolishFactor)
	}
}
