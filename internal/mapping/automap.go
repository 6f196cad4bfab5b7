package mapping

import (
	"context"
	"log"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/domain"
	"github.com/guilamu/gravity-extract/internal/extract"
	"github.com/guilamu/gravity-extract/internal/port"
)

// Automapper asks a model to pair profile extraction keys with destination
// form fields, via the same chat-completions endpoint as extraction.
type Automapper struct {
	gateway port.AiGateway
	cfg     config.PoeConfig
}

// NewAutomapper creates an Automapper.
func NewAutomapper(gateway port.AiGateway, cfg config.PoeConfig) *Automapper {
	return &Automapper{gateway: gateway, cfg: cfg}
}

// Suggest proposes mappings for the given extraction keys and destination
// fields. Only pairs naming a known key and a known field survive; a reply
// with no usable pairs yields an empty Mappings, not an error.
func (a *Automapper) Suggest(ctx context.Context, apiKey, model string, keys []string, fields []domain.DestinationField) (domain.Mappings, error) {
	var out domain.Mappings
	if apiKey == "" {
		return out, domain.ErrMissingAPIKey
	}
	if model == "" {
		return out, domain.ErrMissingModel
	}
	if len(keys) == 0 || len(fields) == 0 {
		return out, nil
	}

	raw, err := a.gateway.ChatComplete(ctx, port.ChatRequest{
		APIKey:      apiKey,
		Model:       model,
		Prompt:      extract.BuildAutomapPrompt(keys, fields),
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.AutomapMaxToken,
	})
	if err != nil {
		return out, err
	}

	pairs, ok := extract.ParseKeyLabels(raw)
	if !ok {
		log.Printf("mapping.Automapper.Suggest: reply contained no usable mapping object")
		return out, nil
	}

	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}
	validDest := make(map[string]bool, len(fields))
	for _, f := range fields {
		validDest[f.ID] = true
	}

	for _, p := range pairs {
		if known[p.Key] && validDest[p.Label] {
			out.Set(p.Key, p.Label)
		}
	}
	log.Printf("mapping.Automapper.Suggest: %d/%d keys mapped", out.Len(), len(keys))
	return out, nil
}
