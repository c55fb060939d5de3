// Package association сопоставляет повреждения деталям кузова.
package association

import (
	"digital-surveyor/internal/taxonomy"
	"digital-surveyor/pkg/geometry"
	"digital-surveyor/pkg/models"
)

// Method каким способом найдена деталь
type Method string

const (
	MethodOverlap  Method = "overlap"
	MethodCentroid Method = "centroid"
	MethodNone     Method = "none"
)

// PartCandidate деталь, найденная детектором деталей
type PartCandidate struct {
	Name  taxonomy.Part
	Label string // Сырая метка детектора
	Box   geometry.Box
}

// Match результат сопоставления одного повреждения
type Match struct {
	Part      taxonomy.Part
	Label     string // Сырая метка найденной детали
	Method    Method
	Coverage  float64 // Доля площади повреждения внутри детали
	PartShare float64 // Доля площади детали, занятая повреждением
}

// PartsFromDetections нормализует сырые детекции деталей
func PartsFromDetections(detections []models.Detection) []PartCandidate {
	parts := make([]PartCandidate, 0, len(detections))
	for _, d := range detections {
		parts = append(parts, PartCandidate{
			Name:  taxonomy.NormalizePart(d.Label),
			Label: d.Label,
			Box:   d.Box,
		})
	}
	return parts
}

// Coverage доля площади damage, лежащая внутри part.
// Для вырожденного повреждения возвращает 0.
func Coverage(damage, part geometry.Box) float64 {
	area := damage.Area()
	if area <= 0 {
		return 0
	}
	return damage.IntersectionArea(part) / area
}

// Associate находит деталь для повреждения: сначала по максимальному покрытию
// (при равенстве первая), затем по попаданию центра повреждения строго внутрь
// детали, иначе unknown.
func Associate(damage geometry.Box, parts []PartCandidate) Match {
	best := -1
	bestCoverage := 0.0
	for i, p := range parts {
		if c := Coverage(damage, p.Box); c > bestCoverage {
			best = i
			bestCoverage = c
		}
	}
	if best >= 0 {
		return Match{
			Part:      parts[best].Name,
			Label:     parts[best].Label,
			Method:    MethodOverlap,
			Coverage:  bestCoverage,
			PartShare: partShare(damage, parts[best].Box),
		}
	}

	center := damage.Center()
	for _, p := range parts {
		if p.Box.ContainsStrict(center) {
			return Match{Part: p.Name, Label: p.Label, Method: MethodCentroid}
		}
	}

	return Match{Part: taxonomy.PartUnknown, Method: MethodNone}
}

func partShare(damage, part geometry.Box) float64 {
	area := part.Area()
	if area <= 0 {
		return 0
	}
	return damage.IntersectionArea(part) / area
}
