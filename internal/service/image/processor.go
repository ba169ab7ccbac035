package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	defaultMaxDimension = 512
	defaultQuality      = 70
)

// ErrUnsupportedMediaType возвращается для загрузок с типом, отличным от image/*.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

type Processor struct {
	maxDimension int
	quality      int
}

func NewProcessor(maxDimension int, quality int) *Processor {
	if maxDimension <= 0 {
		maxDimension = defaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	return &Processor{maxDimension: maxDimension, quality: quality}
}

// Preprocess превращает загруженный файл во встраиваемую data URL строку.
// Изображение ужимается до maxDimension по большей стороне с сохранением
// пропорций (без увеличения) и перекодируется в JPEG с фиксированным качеством.
// Ровно один результат или одна ошибка, частичного вывода не бывает.
func (p *Processor) Preprocess(data []byte, mediaType string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/") {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, mediaType)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()
	if origWidth == 0 || origHeight == 0 {
		return "", fmt.Errorf("invalid image size: %dx%d", origWidth, origHeight)
	}

	// Масштаб по большей стороне, меньшая — пропорционально. Не увеличиваем.
	var width, height int
	if origWidth >= origHeight {
		width = min(origWidth, p.maxDimension)
		height = origHeight * width / origWidth
	} else {
		height = min(origHeight, p.maxDimension)
		width = origWidth * height / origHeight
	}
	width = max(width, 1)
	height = max(height, 1)

	resized := img
	if width != origWidth || height != origHeight {
		resized = resizeNearest(img, width, height)
	}

	encoded, err := encodeJPEG(resized, p.quality)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(encoded)), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resizeNearest(src image.Image, width int, height int) *image.RGBA {
	if width <= 0 || height <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	srcBounds := src.Bounds()
	srcWidth := srcBounds.Dx()
	srcHeight := srcBounds.Dy()
	if srcWidth == 0 || srcHeight == 0 {
		return image.NewRGBA(image.Rect(0, 0, width, height))
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcY := srcBounds.Min.Y + y*srcHeight/height
		for x := 0; x < width; x++ {
			srcX := srcBounds.Min.X + x*srcWidth/width
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}

	return dst
}
