// Package imageio loads photos from disk as upright RGB images and writes the
// renamed JPEG outputs.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned when no registered decoder recognizes a file.
var ErrUnsupported = errors.New("unsupported image format")

var (
	exifHeader = []byte("Exif\x00\x00")
	jpegMagic  = []byte{0xFF, 0xD8}
)

// Loader decodes images from the filesystem.
type Loader struct{}

// Load implements the loader used by the matcher.
func (Loader) Load(path string) (image.Image, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Load decodes the file at path, applies its EXIF orientation and returns an
// NRGBA image with its origin at (0, 0).
func Load(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	img, orientation, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return Orient(img, orientation), nil
}

// Decode decodes image bytes and reports the EXIF orientation that still has to
// be applied (1 when there is none).
// ext selects the HEIF decoder for .heic/.heif files, which carry no magic the
// standard registry understands.
func Decode(data []byte, ext string) (image.Image, int, error) {
	switch strings.ToLower(ext) {
	case ".heic", ".heif":
		img, err := goheif.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, 0, fmt.Errorf("heif: %w", err)
		}
		orientation := 1
		if raw, err := goheif.ExtractExif(bytes.NewReader(data)); err == nil {
			orientation = readOrientation(bytes.TrimPrefix(raw, exifHeader))
		}
		return img, orientation, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, 0, ErrUnsupported
		}
		return nil, 0, err
	}
	// imaging only reads the orientation of JPEG streams and has already
	// applied it.
	if bytes.HasPrefix(data, jpegMagic) {
		return img, 1, nil
	}
	return img, readOrientation(data), nil
}

// readOrientation returns the EXIF orientation tag or 1 if absent or invalid.
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// Orient returns a copy of img rotated and flipped according to an EXIF
// orientation value (1-8). The result always starts at (0, 0).
func Orient(img image.Image, orientation int) *image.NRGBA {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		// imaging rotates counter-clockwise.
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return imaging.Clone(img)
	}
}

// ListImages returns every regular file in dir sorted by file name. No
// extension filter is applied: files that fail to decode end up unmatched.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			// Dangling symlink.
			continue
		}
		if info.Mode().IsRegular() {
			paths = append(paths, path)
		}
	}
	return paths, nil
}
