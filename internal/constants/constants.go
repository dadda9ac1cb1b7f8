// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Matching constants
const (
	// FaceThreshold is the Euclidean distance below which two face patches are
	// considered the same person. Tuned against 100x100 grayscale patches
	// scaled to [0,1]; a distance equal to the threshold does not match.
	FaceThreshold = 20.0

	// WindowSize is the number of neighbouring images searched on each side
	// when resolving a badge or an ambient photo.
	WindowSize = 5

	// PatchSize is the width and height of the face patch used for embeddings.
	PatchSize = 100
)

// Face detection constants
const (
	// HaarScaleFactor is the image pyramid scale step of the Haar cascade.
	HaarScaleFactor = 1.1

	// HaarMinNeighbors is how many overlapping detections a face needs to be kept.
	HaarMinNeighbors = 5

	// HaarCascadeFile is the frontal face cascade shipped with OpenCV.
	HaarCascadeFile = "haarcascade_frontalface_default.xml"
)

// OCR constants
const (
	// TesseractPageSegMode treats the image as a single uniform block of text.
	TesseractPageSegMode = 6

	// DefaultOCRLanguage is the Tesseract language model.
	DefaultOCRLanguage = "eng"

	// MaxVisionImageSize is the maximum dimension of images sent to vision models.
	MaxVisionImageSize = 1600
)

// Output constants
const (
	// DefaultJPEGQuality matches the default quality of the original exports.
	DefaultJPEGQuality = 75

	// DefaultUnmatchedDir is where unattributed images are copied.
	DefaultUnmatchedDir = "unmatched"

	// OutputExt is the extension of every renamed output file.
	OutputExt = ".jpeg"
)
