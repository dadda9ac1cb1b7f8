package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"sync"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2-vision:11b"
)

type OllamaEngine struct {
	baseURL string
	model   string
	client  *http.Client

	mu    sync.Mutex
	usage Usage
}

func NewOllamaEngine(baseURL, model string) *OllamaEngine {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaEngine{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{},
	}
}

func (e *OllamaEngine) Name() string {
	return e.model
}

// GetUsage reports token counts; Ollama is free so the cost stays zero.
func (e *OllamaEngine) GetUsage() Usage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usage
}

// ollamaRequest represents a request to the Ollama chat API
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64 encoded images
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

// ollamaResponse represents a response from the Ollama chat API
type ollamaResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

func (e *OllamaEngine) Text(ctx context.Context, img image.Image) (string, error) {
	data, err := visionJPEG(img)
	if err != nil {
		return "", err
	}

	reqBody := ollamaRequest{
		Model: e.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: transcribePrompt},
			{
				Role:    "user",
				Content: "Transcribe the text in this photo.",
				Images:  []string{base64.StdEncoding.EncodeToString(data)},
			},
		},
		Stream:  false,
		Options: ollamaOptions{NumPredict: 300},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	e.mu.Lock()
	e.usage.track(int64(ollamaResp.PromptEvalCount), int64(ollamaResp.EvalCount), RequestPricing{})
	e.mu.Unlock()

	return cleanTranscript(ollamaResp.Message.Content), nil
}

func (e *OllamaEngine) Close() error {
	return nil
}
