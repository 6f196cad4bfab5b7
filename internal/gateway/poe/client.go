package poe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/domain"
	"github.com/guilamu/gravity-extract/internal/port"
)

// Client talks to the POE OpenAI-compatible API. It implements
// port.AiGateway. Credentials travel per request (each form field carries
// its own key), so the client itself holds no secret state beyond the
// hashed-key model cache.
type Client struct {
	baseURL     string
	listClient  *http.Client
	chatClient  *http.Client
	cache       *modelCache
	temperature float64
	maxTokens   int
}

// NewClient creates a POE client from configuration.
func NewClient(cfg config.PoeConfig) *Client {
	return NewClientWithEndpoint(cfg, cfg.BaseURL)
}

// NewClientWithEndpoint creates a client against a custom endpoint,
// primarily for tests with httptest servers.
func NewClientWithEndpoint(cfg config.PoeConfig, endpoint string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(endpoint, "/"),
		listClient:  &http.Client{Timeout: cfg.ListTimeout},
		chatClient:  &http.Client{Timeout: cfg.ChatTimeout},
		cache:       newModelCache(cfg.ModelCacheTTL),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// keyDigest returns a log-safe prefix of an API key.
func keyDigest(apiKey string) string {
	if len(apiKey) <= 8 {
		return "********"
	}
	return apiKey[:8] + "..."
}

type modelsResponse struct {
	Data []struct {
		ID           string `json:"id"`
		Architecture struct {
			Modality        string   `json:"modality"`
			InputModalities []string `json:"input_modalities"`
		} `json:"architecture"`
		Metadata struct {
			DisplayName string `json:"display_name"`
		} `json:"metadata"`
	} `json:"data"`
}

// ListImageModels fetches the provider's model catalog and returns only
// models that accept image input, sorted case-insensitively by display
// name. Results are cached per API key.
func (c *Client) ListImageModels(ctx context.Context, apiKey string) ([]domain.ModelInfo, error) {
	if apiKey == "" {
		return nil, domain.ErrMissingAPIKey
	}
	if models, ok := c.cache.get(apiKey); ok {
		return models, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("creating models request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	log.Printf("poe.Client.ListImageModels: fetching model catalog (key %s)", keyDigest(apiKey))
	resp, err := c.listClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading models response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("poe.Client.ListImageModels: upstream status %d (key %s)", resp.StatusCode, keyDigest(apiKey))
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Body: truncate(string(body), 500)}
	}

	var decoded modelsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &domain.UpstreamError{Body: "malformed models payload: " + err.Error()}
	}

	models := make([]domain.ModelInfo, 0, len(decoded.Data))
	for _, m := range decoded.Data {
		if !acceptsImages(m.Architecture.Modality, m.Architecture.InputModalities) {
			continue
		}
		name := m.Metadata.DisplayName
		if name == "" {
			name = displayName(m.ID)
		}
		models = append(models, domain.ModelInfo{ID: m.ID, Name: name})
	}
	sort.Slice(models, func(i, j int) bool {
		return strings.ToLower(models[i].Name) < strings.ToLower(models[j].Name)
	})

	c.cache.put(apiKey, models)
	log.Printf("poe.Client.ListImageModels: %d image-capable models (key %s)", len(models), keyDigest(apiKey))
	return models, nil
}

// InvalidateModels drops the cached catalog for an API key, forcing the
// next list to hit the provider.
func (c *Client) InvalidateModels(apiKey string) {
	c.cache.invalidate(apiKey)
}

// acceptsImages reports whether a catalog entry can take image input. The
// catalog exposes both a combined "text+image->text" modality string and an
// input_modalities list; either form counts.
func acceptsImages(modality string, inputs []string) bool {
	for _, in := range inputs {
		if strings.EqualFold(in, "image") {
			return true
		}
	}
	if modality == "" {
		return false
	}
	parts := strings.SplitN(modality, "->", 2)
	return strings.Contains(strings.ToLower(parts[0]), "image")
}

// displayName prettifies a model ID for dropdowns: "gpt-4o-mini" becomes
// "Gpt 4o Mini". IDs with a provider prefix keep only the model part.
func displayName(id string) string {
	name := id
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return id
	}
	return strings.Join(words, " ")
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ChatComplete sends one completion request. When req.ImageBase64 is set
// the user message carries the prompt text first and the image second as a
// data URI. Returns the first choice's content verbatim.
func (c *Client) ChatComplete(ctx context.Context, req port.ChatRequest) (string, error) {
	if req.APIKey == "" {
		return "", domain.ErrMissingAPIKey
	}
	if req.Model == "" {
		return "", domain.ErrMissingModel
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	parts := []contentPart{{Type: "text", Text: req.Prompt}}
	if req.ImageBase64 != "" {
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: dataURI(req.ImageBase64, req.ImageMIME)},
		})
	}

	payload := chatPayload{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	log.Printf("poe.Client.ChatComplete: model=%s image=%t (key %s)", req.Model, req.ImageBase64 != "", keyDigest(req.APIKey))
	resp, err := c.chatClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling chat completions: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("poe.Client.ChatComplete: upstream status %d after %s (key %s)", resp.StatusCode, time.Since(start).Round(time.Millisecond), keyDigest(req.APIKey))
		return "", &domain.UpstreamError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 500)}
	}

	var decoded chatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", &domain.UpstreamError{Body: "malformed chat payload: " + err.Error()}
	}
	if decoded.Error != nil {
		return "", &domain.UpstreamError{Body: decoded.Error.Message}
	}
	if len(decoded.Choices) == 0 {
		return "", &domain.UpstreamError{Body: "chat response contained no choices"}
	}

	log.Printf("poe.Client.ChatComplete: completed in %s", time.Since(start).Round(time.Millisecond))
	return decoded.Choices[0].Message.Content, nil
}

// dataURI wraps base64 image bytes as a data URI, stripping any prefix the
// caller already applied so prefixes never double up.
func dataURI(b64, mime string) string {
	if idx := strings.Index(b64, "base64,"); strings.HasPrefix(b64, "data:") && idx >= 0 {
		b64 = b64[idx+len("base64,"):]
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + b64
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
