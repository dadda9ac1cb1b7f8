package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

type GeminiEngine struct {
	client  *genai.Client
	pricing RequestPricing

	mu    sync.Mutex
	usage Usage
}

func NewGeminiEngine(ctx context.Context, apiKey string, pricing RequestPricing) (*GeminiEngine, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEngine{
		client:  client,
		pricing: pricing,
	}, nil
}

func (e *GeminiEngine) Name() string {
	return geminiModel
}

func (e *GeminiEngine) GetUsage() Usage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usage
}

func (e *GeminiEngine) Text(ctx context.Context, img image.Image) (string, error) {
	data, err := visionJPEG(img)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: transcribePrompt},
				{InlineData: &genai.Blob{Data: data, MIMEType: "image/jpeg"}},
			},
		},
	}

	result, err := e.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if result.UsageMetadata != nil {
		e.mu.Lock()
		e.usage.track(int64(result.UsageMetadata.PromptTokenCount), int64(result.UsageMetadata.CandidatesTokenCount), e.pricing)
		e.mu.Unlock()
	}

	content := result.Text()
	if content == "" {
		return "", errors.New("no response from Gemini")
	}

	return cleanTranscript(content), nil
}

func (e *GeminiEngine) Close() error {
	return nil
}
