package port

import (
	"context"

	"github.com/guilamu/gravity-extract/internal/domain"
)

// ChatRequest carries one multimodal completion request. ImageBase64 may be
// empty for text-only calls (automap); any data-URI prefix is stripped by
// the gateway before re-wrapping.
type ChatRequest struct {
	APIKey      string
	Model       string
	Prompt      string
	ImageBase64 string
	ImageMIME   string
	Temperature float64
	MaxTokens   int
}

// AiGateway abstracts the model-serving HTTP API.
type AiGateway interface {
	ListImageModels(ctx context.Context, apiKey string) ([]domain.ModelInfo, error)
	ChatComplete(ctx context.Context, req ChatRequest) (string, error)
}
