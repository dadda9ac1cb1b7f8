// Package face turns the most prominent face in a photo into a fixed-length
// intensity vector and compares vectors by Euclidean distance.
package face

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/kozaktomas/badge-rename/internal/imageio"
)

// Embedding is a flattened grayscale face patch with values in [0, 1].
// A nil Embedding means no face was found.
type Embedding []float32

// Detector finds face regions in a grayscale image. The order of the returned
// rectangles is detector-defined; callers only ever use the first one.
type Detector interface {
	Detect(ctx context.Context, gray *image.Gray) ([]image.Rectangle, error)
	Close() error
}

// Embedder computes embeddings using a Detector.
type Embedder struct {
	detector Detector
	size     int
}

func NewEmbedder(detector Detector, size int) *Embedder {
	return &Embedder{detector: detector, size: size}
}

// Embed returns the embedding of the first detected face, or nil when the
// detector finds none. Detector errors are returned unchanged in meaning.
func (e *Embedder) Embed(ctx context.Context, img image.Image) (Embedding, error) {
	gray := imageio.Grayscale(img)

	faces, err := e.detector.Detect(ctx, gray)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	if len(faces) == 0 {
		return nil, nil
	}

	region := faces[0].Intersect(gray.Bounds())
	if region.Empty() {
		return nil, nil
	}

	patch := imageio.ResizeGray(gray, region, e.size, e.size)
	vec := make(Embedding, e.size*e.size)
	for y := range e.size {
		row := patch.Pix[y*patch.Stride : y*patch.Stride+e.size]
		for x, v := range row {
			vec[y*e.size+x] = float32(v) / 255
		}
	}
	return vec, nil
}

// Distance is the Euclidean (L2) distance between two embeddings.
// Embeddings of different length are infinitely far apart.
func Distance(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Match reports whether two embeddings are strictly closer than threshold.
func Match(a, b Embedding, threshold float64) bool {
	return Distance(a, b) < threshold
}
