// Package detection чистит сырой вывод детектора повреждений: склеивает
// фрагменты одной царапины и отбрасывает блики.
package detection

import (
	"math"

	"digital-surveyor/pkg/geometry"
	"digital-surveyor/pkg/models"
)

const (
	// DefaultMergeDistance расстояние между центрами рамок, при котором они склеиваются
	DefaultMergeDistance = 50.0
	// DefaultSquareTolerance допуск отношения сторон к 1.0 для "квадратных" бликов
	DefaultSquareTolerance = 0.15
	// DefaultMinReflectionShare доля площади кадра, начиная с которой квадрат считается бликом
	DefaultMinReflectionShare = 0.01
)

// Config параметры постобработки
type Config struct {
	MergeDistance      float64
	SquareTolerance    float64
	MinReflectionShare float64
}

// DefaultConfig параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		MergeDistance:      DefaultMergeDistance,
		SquareTolerance:    DefaultSquareTolerance,
		MinReflectionShare: DefaultMinReflectionShare,
	}
}

// PostProcessor постобработчик детекций повреждений
type PostProcessor struct {
	cfg Config
}

// NewPostProcessor создает постобработчик
func NewPostProcessor(cfg Config) *PostProcessor {
	return &PostProcessor{cfg: cfg}
}

// Process склеивает близкие рамки, отбрасывает блики и возвращает каждой
// оставшейся рамке метку и уверенность ближайшей исходной детекции.
func (p *PostProcessor) Process(raw []models.Detection, imageWidth, imageHeight int) []models.Detection {
	if len(raw) == 0 {
		return nil
	}

	boxes := make([]geometry.Box, len(raw))
	for i, d := range raw {
		boxes[i] = d.Box
	}

	kept := MergeClose(boxes, p.cfg.MergeDistance)
	// Без размера кадра блики не отличить от повреждений
	if imageWidth > 0 && imageHeight > 0 {
		kept = FilterReflections(kept, float64(imageWidth*imageHeight), p.cfg.SquareTolerance, p.cfg.MinReflectionShare)
	}

	result := make([]models.Detection, 0, len(kept))
	for _, b := range kept {
		src := raw[nearest(b, raw)]
		result = append(result, models.Detection{
			Box:        b,
			Label:      src.Label,
			Confidence: src.Confidence,
		})
	}
	return result
}

// MergeClose жадно склеивает рамки, центры которых ближе threshold.
// Порядок входа важен: рамка i поглощает последующие рамки, пока растет,
// поглощенная рамка больше не рассматривается. Проход повторяется, пока
// он что-то склеивает, поэтому повторный вызов на результате ничего не меняет.
func MergeClose(boxes []geometry.Box, threshold float64) []geometry.Box {
	if len(boxes) == 0 {
		return nil
	}

	current := append([]geometry.Box(nil), boxes...)
	for {
		next, mergedAny := mergePass(current, threshold)
		current = next
		if !mergedAny {
			return current
		}
	}
}

func mergePass(boxes []geometry.Box, threshold float64) ([]geometry.Box, bool) {
	used := make([]bool, len(boxes))
	merged := make([]geometry.Box, 0, len(boxes))
	mergedAny := false

	for i := range boxes {
		if used[i] {
			continue
		}
		cur := boxes[i]
		used[i] = true

		for j := i + 1; j < len(boxes); j++ {
			if used[j] {
				continue
			}
			if cur.Center().Distance(boxes[j].Center()) < threshold {
				cur = cur.Union(boxes[j])
				used[j] = true
				mergedAny = true
			}
		}
		merged = append(merged, cur)
	}
	return merged, mergedAny
}

// FilterReflections отбрасывает почти квадратные рамки площадью не меньше
// minShare кадра. Мелкие квадратные повреждения остаются.
func FilterReflections(boxes []geometry.Box, imageArea, tolerance, minShare float64) []geometry.Box {
	kept := make([]geometry.Box, 0, len(boxes))
	for _, b := range boxes {
		aspect := 0.0
		if b.Height() > 0 {
			aspect = b.Width() / b.Height()
		}
		isSquare := math.Abs(aspect-1.0) < tolerance
		isSmall := b.Area() < imageArea*minShare
		if isSquare && !isSmall {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

// nearest индекс исходной детекции с ближайшим центром (при равенстве первая)
func nearest(b geometry.Box, raw []models.Detection) int {
	best := 0
	bestDist := math.Inf(1)
	c := b.Center()
	for i, d := range raw {
		if dist := c.Distance(d.Box.Center()); dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}
