// Package geometry содержит геометрию прямоугольных рамок детектора.
package geometry

import (
	"image"
	"math"
)

// Point точка в пиксельных координатах изображения
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance возвращает евклидово расстояние до другой точки
func (p Point) Distance(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Box рамка (x1,y1)-(x2,y2) в пикселях изображения.
// Рамка нулевой ширины или высоты считается вырожденной, но не ошибочной.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewBox создает рамку из координат углов
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// FromSlice создает рамку из среза [x1, y1, x2, y2]
func FromSlice(coords []float64) (Box, bool) {
	if len(coords) < 4 {
		return Box{}, false
	}
	return Box{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}, true
}

// Width ширина рамки (не меньше нуля)
func (b Box) Width() float64 {
	return math.Max(0, b.X2-b.X1)
}

// Height высота рамки (не меньше нуля)
func (b Box) Height() float64 {
	return math.Max(0, b.Y2-b.Y1)
}

// Area площадь рамки
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// IsDegenerate true, если у рамки нет площади
func (b Box) IsDegenerate() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Center центр рамки
func (b Box) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Union наименьшая рамка, содержащая обе рамки
func (b Box) Union(other Box) Box {
	return Box{
		X1: math.Min(b.X1, other.X1),
		Y1: math.Min(b.Y1, other.Y1),
		X2: math.Max(b.X2, other.X2),
		Y2: math.Max(b.Y2, other.Y2),
	}
}

// IntersectionArea площадь пересечения двух рамок
func (b Box) IntersectionArea(other Box) float64 {
	w := math.Min(b.X2, other.X2) - math.Max(b.X1, other.X1)
	h := math.Min(b.Y2, other.Y2) - math.Max(b.Y1, other.Y1)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// ContainsStrict true, если точка лежит строго внутри рамки
func (b Box) ContainsStrict(p Point) bool {
	return p.X > b.X1 && p.X < b.X2 && p.Y > b.Y1 && p.Y < b.Y2
}

// Truncated рамка с координатами, отброшенными до целых
func (b Box) Truncated() Box {
	return Box{
		X1: math.Trunc(b.X1),
		Y1: math.Trunc(b.Y1),
		X2: math.Trunc(b.X2),
		Y2: math.Trunc(b.Y2),
	}
}

// Rect целочисленный прямоугольник для вырезания фрагмента изображения
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// Slice рамка в виде [x1, y1, x2, y2]
func (b Box) Slice() []float64 {
	return []float64{b.X1, b.Y1, b.X2, b.Y2}
}
