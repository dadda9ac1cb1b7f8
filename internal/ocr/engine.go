// Package ocr extracts free text from photos. Engines are interchangeable:
// a local Tesseract engine and vision-model engines that transcribe the image.
package ocr

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/kozaktomas/badge-rename/internal/config"
	"github.com/kozaktomas/badge-rename/internal/constants"
	"github.com/kozaktomas/badge-rename/internal/imageio"
)

//go:embed prompts/transcribe.txt
var transcribePrompt string

// ErrUnknownEngine is returned by New for an unsupported engine name.
var ErrUnknownEngine = errors.New("unknown ocr engine")

// noTextMarker is what vision engines answer for images without text.
const noTextMarker = "<none>"

// Engine extracts text from a whole image.
type Engine interface {
	Name() string
	Text(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	Requests     int
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// UsageReporter is implemented by engines that bill per token.
type UsageReporter interface {
	GetUsage() Usage
}

// RequestPricing holds input/output prices per 1M tokens
type RequestPricing struct {
	Input  float64
	Output float64
}

func (u *Usage) track(inputTokens, outputTokens int64, pricing RequestPricing) {
	u.Requests++
	u.InputTokens += int(inputTokens)
	u.OutputTokens += int(outputTokens)
	u.TotalCost += float64(inputTokens) / 1_000_000 * pricing.Input
	u.TotalCost += float64(outputTokens) / 1_000_000 * pricing.Output
}

// New creates the engine selected in the configuration.
func New(ctx context.Context, cfg *config.Config) (Engine, error) {
	switch cfg.OCR.Engine {
	case "tesseract":
		engine, err := NewTesseractEngine(cfg.OCR.Language, cfg.OCR.PageSegMode)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case "openai":
		p := cfg.GetModelPricing(openAIModel)
		return NewOpenAIEngine(cfg.OpenAI.Token, RequestPricing{Input: p.Input, Output: p.Output}), nil
	case "gemini":
		p := cfg.GetModelPricing(geminiModel)
		engine, err := NewGeminiEngine(ctx, cfg.Gemini.APIKey, RequestPricing{Input: p.Input, Output: p.Output})
		if err != nil {
			return nil, err
		}
		return engine, nil
	case "ollama":
		return NewOllamaEngine(cfg.Ollama.URL, cfg.Ollama.Model), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.OCR.Engine)
	}
}

// visionJPEG prepares an image for upload to a vision model.
func visionJPEG(img image.Image) ([]byte, error) {
	data, err := imageio.EncodeJPEG(imageio.Downscale(img, constants.MaxVisionImageSize), 85)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}
	return data, nil
}

// cleanTranscript strips the formatting vision models like to add and maps
// the no-text marker to an empty string.
func cleanTranscript(content string) string {
	text := strings.TrimSpace(content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if strings.EqualFold(text, noTextMarker) {
		return ""
	}
	return text
}
