package imageio

import (
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Grayscale converts an image to 8-bit luma using the ITU-R BT.601 weights.
// The result starts at (0, 0).
func Grayscale(img image.Image) *image.Gray {
	luma := imaging.Grayscale(img)
	b := luma.Bounds()
	gray := image.NewGray(b)
	for y := range b.Dy() {
		row := luma.Pix[y*luma.Stride:]
		for x := range b.Dx() {
			gray.Pix[y*gray.Stride+x] = row[x*4]
		}
	}
	return gray
}

// ResizeGray scales a grayscale region to exactly width x height.
func ResizeGray(src *image.Gray, region image.Rectangle, width, height int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, region, draw.Src, nil)
	return dst
}

// Downscale resizes an image to fit within maxSize (width or height) while
// keeping aspect ratio. Images already small enough are returned unchanged.
func Downscale(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}
