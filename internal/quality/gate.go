// Package quality проверяет пригодность снимка до запуска детекторов.
package quality

import (
	"math"

	"gocv.io/x/gocv"

	"digital-surveyor/internal/imaging"
)

// Issue причина отклонения снимка
type Issue string

const (
	IssueNone         Issue = ""
	IssueTooBlurry    Issue = "too-blurry"
	IssueTooDark      Issue = "too-dark"
	IssueTooMuchGlare Issue = "too-much-glare"
)

// Message текст для пользователя
func (i Issue) Message() string {
	switch i {
	case IssueTooBlurry:
		return "Image is too blurry. Hold the camera steady and retake the photo."
	case IssueTooDark:
		return "Image is too dark. Move to a brighter place and retake the photo."
	case IssueTooMuchGlare:
		return "Image has too much glare. Change the angle to avoid direct reflections."
	default:
		return "Image quality is acceptable."
	}
}

// Thresholds пороги проверок
type Thresholds struct {
	MinSharpness  float64 // Минимальная дисперсия лапласиана
	MinBrightness float64 // Минимальная средняя яркость
	GlareLevel    float64 // Яркость канала, начиная с которой пиксель считается бликом
	MaxGlareShare float64 // Допустимая доля бликующих пикселей
}

// DefaultThresholds пороги по умолчанию
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSharpness:  100,
		MinBrightness: 50,
		GlareLevel:    250,
		MaxGlareShare: 0.05,
	}
}

// Result итог проверки с измеренными значениями
type Result struct {
	Issue      Issue
	Sharpness  float64
	Brightness float64
	GlareShare float64
}

// Passed true, если снимок прошел все проверки
func (r Result) Passed() bool {
	return r.Issue == IssueNone
}

// Gate проверка качества снимка
type Gate struct {
	th Thresholds
}

// NewGate создает проверку с заданными порогами
func NewGate(th Thresholds) *Gate {
	return &Gate{th: th}
}

// Check проверяет резкость, затем освещенность, затем блики.
// Первая неудачная проверка завершает проверку.
func (g *Gate) Check(img gocv.Mat) (Result, error) {
	if img.Empty() {
		return Result{}, imaging.ErrEmptyImage
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() == 1 {
		img.CopyTo(&gray)
	} else {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}

	var res Result
	res.Sharpness = laplacianVariance(gray)
	if res.Sharpness < g.th.MinSharpness {
		res.Issue = IssueTooBlurry
		return res, nil
	}

	res.Brightness, _ = meanStdDev(gray)
	if res.Brightness < g.th.MinBrightness {
		res.Issue = IssueTooDark
		return res, nil
	}

	res.GlareShare = g.glareShare(img)
	if res.GlareShare > g.th.MaxGlareShare {
		res.Issue = IssueTooMuchGlare
	}
	return res, nil
}

func laplacianVariance(gray gocv.Mat) float64 {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
	_, std := meanStdDev(lap)
	return std * std
}

func meanStdDev(src gocv.Mat) (float64, float64) {
	mean := gocv.NewMat()
	defer mean.Close()
	std := gocv.NewMat()
	defer std.Close()
	gocv.MeanStdDev(src, &mean, &std)
	if mean.Empty() || std.Empty() {
		return 0, 0
	}
	return mean.GetDoubleAt(0, 0), std.GetDoubleAt(0, 0)
}

// glareShare доля пикселей, у которых все каналы не ниже порога блика
func (g *Gate) glareShare(img gocv.Mat) float64 {
	total := img.Rows() * img.Cols()
	if total == 0 {
		return 0
	}
	lo := math.Min(g.th.GlareLevel, 255)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(img, gocv.NewScalar(lo, lo, lo, 0), gocv.NewScalar(255, 255, 255, 0), &mask)
	return float64(gocv.CountNonZero(mask)) / float64(total)
}
