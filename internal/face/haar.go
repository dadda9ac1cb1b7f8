package face

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/kozaktomas/badge-rename/internal/constants"
	"gocv.io/x/gocv"
)

// cascadeDirs are searched when no explicit cascade path is configured.
var cascadeDirs = []string{
	".",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}

// HaarDetector wraps an OpenCV frontal face cascade. The classifier is not
// safe for concurrent use, so detections are serialized.
type HaarDetector struct {
	mu           sync.Mutex
	classifier   gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
}

func NewHaarDetector(cascadePath string, scaleFactor float64, minNeighbors int) (*HaarDetector, error) {
	classifier := gocv.NewCascadeClassifier()

	candidates := []string{cascadePath}
	if cascadePath == "" {
		candidates = candidates[:0]
		for _, dir := range cascadeDirs {
			candidates = append(candidates, filepath.Join(dir, constants.HaarCascadeFile))
		}
	}

	for _, path := range candidates {
		if classifier.Load(path) {
			return &HaarDetector{
				classifier:   classifier,
				scaleFactor:  scaleFactor,
				minNeighbors: minNeighbors,
			}, nil
		}
	}

	classifier.Close()
	return nil, fmt.Errorf("failed to load face cascade classifier from %v", candidates)
}

func (d *HaarDetector) Detect(ctx context.Context, gray *image.Gray) ([]image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to Mat: %w", err)
	}
	defer mat.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	rects := d.classifier.DetectMultiScaleWithParams(mat, d.scaleFactor, d.minNeighbors, 0, image.Point{}, image.Point{})
	faces := make([]image.Rectangle, len(rects))
	for i, r := range rects {
		faces[i] = r.Add(gray.Bounds().Min)
	}
	return faces, nil
}

func (d *HaarDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
