package imaging

import (
	"image"

	"gocv.io/x/gocv"
)

// Параметры CLAHE для канала яркости
const (
	ClaheClipLimit = 3.0
	ClaheTileSize  = 8
)

// EnhanceContrast выравнивает контраст CLAHE по каналу L пространства LAB,
// чтобы детектор видел царапины на бликующем лаке. Вызывающий закрывает результат.
func EnhanceContrast(src gocv.Mat) gocv.Mat {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(src, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	clahe := gocv.NewCLAHEWithParams(ClaheClipLimit, image.Point{X: ClaheTileSize, Y: ClaheTileSize})
	defer clahe.Close()

	l := gocv.NewMat()
	clahe.Apply(channels[0], &l)
	channels[0].Close()
	channels[0] = l

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	dst := gocv.NewMat()
	gocv.CvtColor(merged, &dst, gocv.ColorLabToBGR)
	return dst
}
