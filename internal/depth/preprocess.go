package depth

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"digital-surveyor/pkg/models"
)

// Нормализация ImageNet, с которой обучалась Depth Anything
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess растягивает фрагмент до size×size и раскладывает его в
// плоский тензор CHW с нормализацией ImageNet
func Preprocess(img image.Image, size int) []float32 {
	resized := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := resized.PixOffset(x, y)
			idx := y*size + x
			for c := 0; c < 3; c++ {
				v := float32(resized.Pix[off+c]) / 255
				out[c*plane+idx] = (v - imagenetMean[c]) / imagenetStd[c]
			}
		}
	}
	return out
}

// ToDepthMap раскладывает плоский выход модели по строкам
func ToDepthMap(data []float32, width, height int) (models.DepthMap, error) {
	if width <= 0 || height <= 0 || len(data) < width*height {
		return nil, fmt.Errorf("depth output has %d values, want %dx%d", len(data), width, height)
	}
	depthMap := make(models.DepthMap, height)
	for y := 0; y < height; y++ {
		row := make([]float64, width)
		for x := 0; x < width; x++ {
			row[x] = float64(data[y*width+x])
		}
		depthMap[y] = row
	}
	return depthMap, nil
}
