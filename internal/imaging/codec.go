// Package imaging содержит операции OpenCV над снимками: декодирование,
// выравнивание контраста, разметку и тепловые карты.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"
)

// ErrEmptyImage данные не декодируются в непустое изображение
var ErrEmptyImage = errors.New("image is empty or cannot be decoded")

// Decode декодирует JPEG/PNG в BGR матрицу
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), ErrEmptyImage
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), ErrEmptyImage
	}
	return mat, nil
}

// EncodePNG кодирует матрицу в PNG
func EncodePNG(mat gocv.Mat) ([]byte, error) {
	return encode(gocv.PNGFileExt, mat)
}

// EncodeJPEG кодирует матрицу в JPEG
func EncodeJPEG(mat gocv.Mat) ([]byte, error) {
	return encode(gocv.JPEGFileExt, mat)
}

func encode(ext gocv.FileExt, mat gocv.Mat) ([]byte, error) {
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	buf, err := gocv.IMEncode(ext, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	// Буфер принадлежит OpenCV, копируем до Close
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// ToImage переводит BGR матрицу в *image.RGBA
func ToImage(mat gocv.Mat) (*image.RGBA, error) {
	if mat.Empty() {
		return nil, ErrEmptyImage
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	switch mat.Channels() {
	case 1:
		gocv.CvtColor(mat, &rgba, gocv.ColorGrayToRGBA)
	case 4:
		gocv.CvtColor(mat, &rgba, gocv.ColorBGRAToRGBA)
	default:
		gocv.CvtColor(mat, &rgba, gocv.ColorBGRToRGBA)
	}

	img := image.NewRGBA(image.Rect(0, 0, rgba.Cols(), rgba.Rows()))
	copy(img.Pix, rgba.ToBytes())
	return img, nil
}

// FromImage переводит image.Image в BGR матрицу
func FromImage(img image.Image) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.NewMat(), ErrEmptyImage
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}

// EncodeImagePNG кодирует image.Image в PNG через OpenCV
func EncodeImagePNG(img image.Image) ([]byte, error) {
	mat, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	return EncodePNG(mat)
}
