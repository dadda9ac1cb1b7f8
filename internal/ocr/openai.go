package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAIModel = openai.ChatModelGPT4_1Mini

type OpenAIEngine struct {
	client  *openai.Client
	pricing RequestPricing

	mu    sync.Mutex
	usage Usage
}

func NewOpenAIEngine(apiKey string, pricing RequestPricing, opts ...option.RequestOption) *OpenAIEngine {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIEngine{
		client:  &client,
		pricing: pricing,
	}
}

func (e *OpenAIEngine) Name() string {
	return openAIModel
}

func (e *OpenAIEngine) GetUsage() Usage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usage
}

func (e *OpenAIEngine) Text(ctx context.Context, img image.Image) (string, error) {
	data, err := visionJPEG(img)
	if err != nil {
		return "", err
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(transcribePrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart("Transcribe the text in this photo."),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "high",
						}),
					},
				},
			},
		},
	}

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openAIModel,
		Messages:  messages,
		MaxTokens: openai.Int(300),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	e.mu.Lock()
	e.usage.track(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, e.pricing)
	e.mu.Unlock()

	return cleanTranscript(resp.Choices[0].Message.Content), nil
}

func (e *OpenAIEngine) Close() error {
	return nil
}
