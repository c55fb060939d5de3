// Package engine собирает оценку скана: постобработка детекций, поиск детали,
// тяжесть, коррекция метки и выбор работы для каждого повреждения.
package engine

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"digital-surveyor/internal/association"
	"digital-surveyor/internal/detection"
	"digital-surveyor/internal/labeling"
	"digital-surveyor/internal/pricing"
	"digital-surveyor/internal/severity"
	"digital-surveyor/internal/taxonomy"
	"digital-surveyor/pkg/geometry"
	"digital-surveyor/pkg/models"
)

// Названия моделей внешнего детектора
const (
	ModelParts  = "parts"
	ModelDamage = "damage"
)

// DetectOptions параметры запуска детектора
type DetectOptions struct {
	Confidence float64
	IoU        float64
}

// Detector внешний детектор объектов
type Detector interface {
	Detect(ctx context.Context, img image.Image, model string, opts DetectOptions) ([]models.Detection, error)
}

// Input исходные данные одного скана
type Input struct {
	Image           image.Image        // Исходный снимок, из него вырезаются фрагменты
	Parts           []models.Detection // Детали кузова
	Damages         []models.Detection // Сырые повреждения
	PriceMultiplier float64
}

// Record итог по одному повреждению
type Record struct {
	Index        int
	Detection    models.Detection    // Повреждение после постобработки
	OriginalKind taxonomy.DamageKind // Тип по метке детектора
	Kind         taxonomy.DamageKind // Тип после коррекции
	Match        association.Match
	Estimate     severity.Estimate
	Correction   labeling.Correction
	Decision     pricing.Decision
}

// Result итог оценки скана
type Result struct {
	Records   []Record
	TotalCost float64
	Currency  string
	Strategy  string
}

// Engine оценщик повреждений
type Engine struct {
	post       *detection.PostProcessor
	estimator  *severity.Estimator
	strategy   pricing.Strategy
	maxWorkers int
	logger     *logrus.Logger
}

// NewEngine создает оценщик. maxWorkers <= 0 означает число CPU.
func NewEngine(post *detection.PostProcessor, estimator *severity.Estimator, strategy pricing.Strategy, maxWorkers int, logger *logrus.Logger) *Engine {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &Engine{
		post:       post,
		estimator:  estimator,
		strategy:   strategy,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// Strategy набор правил выбора работы
func (e *Engine) Strategy() pricing.Strategy {
	return e.strategy
}

// Assess оценивает все повреждения скана. Каждое повреждение после
// постобработки дает ровно одну запись, порядок записей совпадает с порядком
// детекций. Ошибка возвращается только при отмене контекста.
func (e *Engine) Assess(ctx context.Context, in Input) (*Result, error) {
	width, height := 0, 0
	if in.Image != nil {
		b := in.Image.Bounds()
		width, height = b.Dx(), b.Dy()
	}

	damages := e.post.Process(in.Damages, width, height)
	parts := association.PartsFromDetections(in.Parts)

	records := make([]Record, len(damages))
	sem := make(chan struct{}, e.maxWorkers)
	var wg sync.WaitGroup

	for i := range damages {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			records[idx] = e.assessOne(ctx, idx, damages[idx], parts, in.Image, in.PriceMultiplier)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("assessment interrupted: %w", err)
	}

	decisions := make([]pricing.Decision, len(records))
	for i, r := range records {
		decisions[i] = r.Decision
	}

	return &Result{
		Records:   records,
		TotalCost: pricing.Total(decisions),
		Currency:  e.strategy.Currency(),
		Strategy:  e.strategy.Name(),
	}, nil
}

func (e *Engine) assessOne(ctx context.Context, idx int, d models.Detection, parts []association.PartCandidate, img image.Image, multiplier float64) Record {
	kind := taxonomy.NormalizeDamage(d.Label)
	match := association.Associate(d.Box, parts)

	est := e.estimator.Estimate(ctx, kind, Crop(img, d.Box))
	if est.IsFallback() {
		e.logger.WithFields(logrus.Fields{
			"damage_index": idx,
			"label":        d.Label,
			"reason":       est.Fallback,
		}).Warn("Тяжесть повреждения оценена по умолчанию")
	}

	correction := labeling.Correct(kind, d.Box, est.Severity)

	decision := e.strategy.Decide(pricing.Input{
		Severity:   est.Severity,
		Kind:       correction.Kind,
		Part:       match.Part,
		PartShare:  match.PartShare,
		DepthScore: est.Score,
	}, multiplier)

	return Record{
		Index:        idx,
		Detection:    d,
		OriginalKind: kind,
		Kind:         correction.Kind,
		Match:        match,
		Estimate:     est,
		Correction:   correction,
		Decision:     decision,
	}
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Crop вырезает фрагмент по рамке (координаты усекаются до целых).
// Возвращает nil, если фрагмент пуст или изображение не поддерживает вырезание.
func Crop(img image.Image, box geometry.Box) image.Image {
	if img == nil {
		return nil
	}
	rect := box.Rect().Intersect(img.Bounds())
	if rect.Empty() {
		return nil
	}
	si, ok := img.(subImager)
	if !ok {
		return nil
	}
	return si.SubImage(rect)
}
