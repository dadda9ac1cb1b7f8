// Package output writes renamed images and the unmatched bucket.
package output

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kozaktomas/badge-rename/internal/constants"
	"github.com/kozaktomas/badge-rename/internal/imageio"
)

// Kind distinguishes badge shots from ordinary photos of a person.
type Kind string

const (
	KindBadge Kind = "badge"
	KindPhoto Kind = "photo"
)

// Assignment is the final decision for one source image.
type Assignment struct {
	Source string
	Name   string
	Kind   Kind
	Number int
}

// FileName returns the output file name for an assignment:
// Name-badge.jpeg, Name-badge-<n>.jpeg or Name-<n>.jpeg.
func FileName(a Assignment) string {
	name := sanitize(a.Name)
	switch a.Kind {
	case KindBadge:
		if a.Number <= 1 {
			return name + "-badge" + constants.OutputExt
		}
		return name + "-badge-" + strconv.Itoa(a.Number) + constants.OutputExt
	default:
		return name + "-" + strconv.Itoa(a.Number) + constants.OutputExt
	}
}

// sanitize keeps roster names from escaping the output directory.
func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." {
		return "_"
	}
	return name
}

// Options configures a Writer.
type Options struct {
	Quality int  // JPEG quality, 1-100
	DryRun  bool // compute destinations without writing anything
}

// Writer saves assignments under the output directory. A destination is
// never written twice in one run.
type Writer struct {
	outputDir    string
	unmatchedDir string
	opts         Options

	mu      sync.Mutex
	written map[string]struct{}
}

// New creates a Writer. A relative unmatchedDir is placed inside outputDir.
func New(outputDir, unmatchedDir string, opts Options) *Writer {
	if unmatchedDir == "" {
		unmatchedDir = constants.DefaultUnmatchedDir
	}
	if !filepath.IsAbs(unmatchedDir) {
		unmatchedDir = filepath.Join(outputDir, unmatchedDir)
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = constants.DefaultJPEGQuality
	}
	return &Writer{
		outputDir:    outputDir,
		unmatchedDir: unmatchedDir,
		opts:         opts,
		written:      make(map[string]struct{}),
	}
}

func (w *Writer) OutputDir() string    { return w.outputDir }
func (w *Writer) UnmatchedDir() string { return w.unmatchedDir }

// Prepare creates the output and unmatched directories.
func (w *Writer) Prepare() error {
	if w.opts.DryRun {
		return nil
	}
	for _, dir := range []string{w.outputDir, w.unmatchedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Save re-encodes img as JPEG under the assignment's file name and returns
// the path written. If that path was already used in this run, the number is
// advanced until a free name is found.
func (w *Writer) Save(img image.Image, a Assignment) (string, error) {
	w.mu.Lock()
	path := w.reserve(a)
	w.mu.Unlock()

	if w.opts.DryRun {
		return path, nil
	}
	if err := imageio.SaveJPEG(path, img, w.opts.Quality); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Writer) reserve(a Assignment) string {
	if a.Number < 1 {
		a.Number = 1
	}
	for {
		path := filepath.Join(w.outputDir, FileName(a))
		if _, taken := w.written[path]; !taken {
			w.written[path] = struct{}{}
			return path
		}
		a.Number++
	}
}

// CopyUnmatched copies the original file verbatim into the unmatched directory.
func (w *Writer) CopyUnmatched(src string) (string, error) {
	dst := filepath.Join(w.unmatchedDir, filepath.Base(src))

	w.mu.Lock()
	w.written[dst] = struct{}{}
	w.mu.Unlock()

	if w.opts.DryRun {
		return dst, nil
	}
	if err := imageio.CopyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}
