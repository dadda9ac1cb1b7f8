package ocr

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/kozaktomas/badge-rename/internal/imageio"
	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine runs a local Tesseract instance. A gosseract client is not
// safe for concurrent use, so calls are serialized.
type TesseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
	lang   string
}

func NewTesseractEngine(lang string, pageSegMode int) (*TesseractEngine, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set tesseract language %q: %w", lang, err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(pageSegMode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode %d: %w", pageSegMode, err)
	}
	return &TesseractEngine{client: client, lang: lang}, nil
}

func (e *TesseractEngine) Name() string {
	return "tesseract-" + e.lang
}

func (e *TesseractEngine) Text(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := imageio.EncodePNG(img)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("tesseract: failed to set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}

func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}
