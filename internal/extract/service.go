package extract

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/domain"
	"github.com/guilamu/gravity-extract/internal/port"
	"github.com/guilamu/gravity-extract/internal/profile"
)

// Service runs the extraction pipeline: validate the field configuration,
// send the prepared image to the model, and parse the reply into per-key
// values. Image preparation (flatten, crop, optimize) happens upstream.
type Service struct {
	gateway  port.AiGateway
	profiles *profile.Store
	cfg      config.PoeConfig
}

// NewService creates an extraction Service.
func NewService(gateway port.AiGateway, profiles *profile.Store, cfg config.PoeConfig) *Service {
	return &Service{gateway: gateway, profiles: profiles, cfg: cfg}
}

// AnalyzeRequest is one extraction pass over a prepared image.
type AnalyzeRequest struct {
	Config      domain.FieldConfig
	ImageBase64 string
	ImageMIME   string
}

// Analyze extracts the configured keys from the image. An empty profile is
// the upload-only sentinel: the field carries no extraction config, so the
// result is empty rather than an error. Other configuration errors surface
// before any network call; a model reply that cannot be parsed still yields
// a result with every key null.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*domain.ExtractionResult, error) {
	if strings.TrimSpace(req.Config.Profile) == "" {
		return &domain.ExtractionResult{ExtractedData: map[string]*string{}}, nil
	}
	if err := validateConfig(req.Config); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ImageBase64) == "" {
		return nil, domain.ErrMissingImage
	}

	keys := req.Config.Mappings.Keys()
	if len(keys) == 0 {
		return &domain.ExtractionResult{ExtractedData: map[string]*string{}}, nil
	}

	// The mapping keys must come from the active profile's field list;
	// anything else is a stale or hand-edited config, not a model request.
	p, err := s.profiles.Get(ctx, req.Config.Profile)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if !p.Fields.Has(key) {
			return nil, fmt.Errorf("%w: %q not in profile %s", domain.ErrUnknownMappingKey, key, p.Slug)
		}
	}

	prompt := BuildExtractionPrompt(req.Config.Profile, keys)
	raw, err := s.gateway.ChatComplete(ctx, port.ChatRequest{
		APIKey:      req.Config.APIKey,
		Model:       req.Config.Model,
		Prompt:      prompt,
		ImageBase64: req.ImageBase64,
		ImageMIME:   req.ImageMIME,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	data := ParseKeyValues(raw, keys)
	found := 0
	for _, v := range data {
		if v != nil {
			found++
		}
	}
	log.Printf("extract.Service.Analyze: %d/%d keys extracted (model=%s)", found, len(keys), req.Config.Model)

	return &domain.ExtractionResult{ExtractedData: data}, nil
}

// DetectFields proposes extraction fields for a document image, in model
// output order.
func (s *Service) DetectFields(ctx context.Context, apiKey, model, imageBase64, imageMIME string) ([]KeyLabel, error) {
	if apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}
	if model == "" {
		return nil, domain.ErrMissingModel
	}
	if strings.TrimSpace(imageBase64) == "" {
		return nil, domain.ErrMissingImage
	}

	raw, err := s.gateway.ChatComplete(ctx, port.ChatRequest{
		APIKey:      apiKey,
		Model:       model,
		Prompt:      BuildDetectPrompt(),
		ImageBase64: imageBase64,
		ImageMIME:   imageMIME,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	fields, ok := ParseKeyLabels(raw)
	if !ok {
		log.Printf("extract.Service.DetectFields: reply contained no usable field list")
		return nil, nil
	}
	return fields, nil
}

func validateConfig(cfg domain.FieldConfig) error {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return domain.ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return domain.ErrMissingModel
	}
	return nil
}
