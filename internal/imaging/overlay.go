package imaging

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"digital-surveyor/pkg/geometry"
	"digital-surveyor/pkg/models"
)

const (
	// HeatmapBlurKernel размер ядра размытия тепловых пятен
	HeatmapBlurKernel = 101
	// HeatmapMaxAlpha максимальная непрозрачность тепловой карты
	HeatmapMaxAlpha = 0.6
	// HeatmapAxisScale полуоси эллипса относительно размеров рамки
	HeatmapAxisScale = 0.7
	// DepthOverlayWeight доля исходного фрагмента в наложении карты глубины
	DepthOverlayWeight = 0.6
)

var boxColor = color.RGBA{G: 255, A: 255}

// Annotation рамка с подписью для размеченного снимка
type Annotation struct {
	Box   geometry.Box
	Label string
}

// HeatSpot источник тепла на карте повреждений
type HeatSpot struct {
	Box      geometry.Box
	Severity int
}

// Annotate рисует рамки повреждений с подписями. Вызывающий закрывает результат.
func Annotate(src gocv.Mat, annotations []Annotation) gocv.Mat {
	dst := src.Clone()
	for _, a := range annotations {
		rect := a.Box.Rect()
		gocv.Rectangle(&dst, rect, boxColor, 2)
		if a.Label != "" {
			org := image.Point{X: rect.Min.X, Y: rect.Min.Y - 10}
			if org.Y < 10 {
				org.Y = rect.Min.Y + 15
			}
			gocv.PutText(&dst, a.Label, org, gocv.FontHersheySimplex, 0.5, boxColor, 2)
		}
	}
	return dst
}

// HeatIntensity переводит тяжесть 0..100 в яркость пятна 50..255
func HeatIntensity(severity int) uint8 {
	if severity < 0 {
		severity = 0
	}
	if severity > 100 {
		severity = 100
	}
	return uint8(50 + float64(severity)*205/100)
}

// ScanHeatmap накладывает на снимок тепловую карту: эллипс на каждое
// повреждение, размытие и цветовая карта JET с прозрачностью, растущей
// вместе с яркостью пятна. Вызывающий закрывает результат.
func ScanHeatmap(src gocv.Mat, spots []HeatSpot) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), ErrEmptyImage
	}
	rows, cols := src.Rows(), src.Cols()

	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)
	defer mask.Close()

	for _, s := range spots {
		rect := s.Box.Rect()
		center := image.Point{X: (rect.Min.X + rect.Max.X) / 2, Y: (rect.Min.Y + rect.Max.Y) / 2}
		axes := image.Point{
			X: int(float64(rect.Dx()) * HeatmapAxisScale),
			Y: int(float64(rect.Dy()) * HeatmapAxisScale),
		}
		v := HeatIntensity(s.Severity)
		gocv.Ellipse(&mask, center, axes, 0, 0, 360, color.RGBA{R: v, G: v, B: v, A: 255}, -1)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(mask, &blurred, image.Point{X: HeatmapBlurKernel, Y: HeatmapBlurKernel}, 0, 0, gocv.BorderDefault)

	colored := gocv.NewMat()
	defer colored.Close()
	gocv.ApplyColorMap(blurred, &colored, gocv.ColormapJet)

	// alpha = mask/255*0.6 по каждому каналу
	alpha1 := gocv.NewMat()
	defer alpha1.Close()
	blurred.ConvertToWithParams(&alpha1, gocv.MatTypeCV32F, HeatmapMaxAlpha/255, 0)
	alpha := gocv.NewMat()
	defer alpha.Close()
	gocv.Merge([]gocv.Mat{alpha1, alpha1, alpha1}, &alpha)

	ones := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 1, 1, 0), rows, cols, gocv.MatTypeCV32FC3)
	defer ones.Close()
	inverse := gocv.NewMat()
	defer inverse.Close()
	gocv.Subtract(ones, alpha, &inverse)

	base := gocv.NewMat()
	defer base.Close()
	src.ConvertTo(&base, gocv.MatTypeCV32F)
	heat := gocv.NewMat()
	defer heat.Close()
	colored.ConvertTo(&heat, gocv.MatTypeCV32F)

	gocv.Multiply(base, inverse, &base)
	gocv.Multiply(heat, alpha, &heat)

	sum := gocv.NewMat()
	defer sum.Close()
	gocv.Add(base, heat, &sum)

	dst := gocv.NewMat()
	sum.ConvertTo(&dst, gocv.MatTypeCV8U)
	return dst, nil
}

// DepthOverlay раскрашивает карту глубины JET, растягивает ее до размера
// фрагмента и смешивает с ним 60/40. Вызывающий закрывает результат.
func DepthOverlay(crop gocv.Mat, depth models.DepthMap) (gocv.Mat, error) {
	if crop.Empty() {
		return gocv.NewMat(), ErrEmptyImage
	}
	if len(depth) == 0 || len(depth[0]) == 0 {
		return gocv.NewMat(), fmt.Errorf("depth map is empty")
	}

	rows, cols := len(depth), len(depth[0])
	raw := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	defer raw.Close()
	for y, row := range depth {
		if len(row) != cols {
			return gocv.NewMat(), fmt.Errorf("depth map row %d has %d values, want %d", y, len(row), cols)
		}
		for x, v := range row {
			raw.SetFloatAt(y, x, float32(v))
		}
	}

	normalized := gocv.NewMat()
	defer normalized.Close()
	gocv.Normalize(raw, &normalized, 0, 255, gocv.NormMinMax)
	depth8 := gocv.NewMat()
	defer depth8.Close()
	normalized.ConvertTo(&depth8, gocv.MatTypeCV8U)

	colored := gocv.NewMat()
	defer colored.Close()
	gocv.ApplyColorMap(depth8, &colored, gocv.ColormapJet)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(colored, &resized, image.Point{X: crop.Cols(), Y: crop.Rows()}, 0, 0, gocv.InterpolationLinear)

	dst := gocv.NewMat()
	gocv.AddWeighted(crop, DepthOverlayWeight, resized, 1-DepthOverlayWeight, 0, &dst)
	return dst, nil
}
