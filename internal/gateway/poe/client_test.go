package poe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/domain"
	"github.com/guilamu/gravity-extract/internal/port"
)

func testPoeConfig() config.PoeConfig {
	return config.PoeConfig{
		ListTimeout:   5 * time.Second,
		ChatTimeout:   5 * time.Second,
		ModelCacheTTL: time.Hour,
		Temperature:   0.1,
		MaxTokens:     2000,
	}
}

func TestListImageModels_FiltersAndSorts(t *testing.T) {
	catalog := map[string]interface{}{
		"data": []map[string]interface{}{
			{
				"id": "zeta-vision",
				"architecture": map[string]interface{}{
					"modality": "text+image->text",
				},
				"metadata": map[string]interface{}{"display_name": "Zeta Vision"},
			},
			{
				"id": "text-only-model",
				"architecture": map[string]interface{}{
					"modality": "text->text",
				},
			},
			{
				"id": "alpha-vision",
				"architecture": map[string]interface{}{
					"input_modalities": []string{"text", "image"},
				},
			},
		},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer test-key-123456", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(catalog)
	}))
	defer server.Close()

	client := NewClientWithEndpoint(testPoeConfig(), server.URL)
	models, err := client.ListImageModels(context.Background(), "test-key-123456")
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "alpha-vision", models[0].ID)
	assert.Equal(t, "zeta-vision", models[1].ID)
	assert.Equal(t, "Alpha Vision", models[0].Name)
}

func TestListImageModels_CachesPerKey(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "vision-model", "architecture": map[string]interface{}{"modality": "text+image->text"}},
			},
		})
	}))
	defer server.Close()

	client := NewClientWithEndpoint(testPoeConfig(), server.URL)
	ctx := context.Background()

	_, err := client.ListImageModels(ctx, "key-aaaaaaaa")
	require.NoError(t, err)
	_, err = client.ListImageModels(ctx, "key-aaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call for the same key must hit the cache")

	_, err = client.ListImageModels(ctx, "key-bbbbbbbb")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "a different key must not share the cache entry")

	client.InvalidateModels("key-aaaaaaaa")
	_, err = client.ListImageModels(ctx, "key-aaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestListImageModels_CacheExpires(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]interface{}{}})
	}))
	defer server.Close()

	client := NewClientWithEndpoint(testPoeConfig(), server.URL)
	now := time.Now()
	client.cache.now = func() time.Time { return now }

	_, err := client.ListImageModels(context.Background(), "key-cccccccc")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = client.ListImageModels(context.Background(), "key-cccccccc")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestListImageModels_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer server.Close()

	client := NewClientWithEndpoint(testPoeConfig(), server.URL)
	_, err := client.ListImageModels(context.Background(), "bad-key-00000000")
	require.Error(t, err)

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)
}

func TestListImageModels_MissingKey(t *testing.T) {
	client := NewClientWithEndpoint(testPoeConfig(), "http://unused")
	_, err := client.ListImageModels(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
}

func TestChatComplete_SendsTextThenImage(t *testing.T) {
	var captured chatPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": `{"invoice_number":"INV-042"}`}},
			},
		})
	}))
	defer server.Close()

	client := NewClientWithEndpoint(testPoeConfig(), server.URL)
	content, err := client.ChatComplete(context.Background(), port.ChatRequest{
		APIKey:      "test-key-123456",
		Model:       "vision-model",
		Prompt:      "Extract the fields.",
		ImageBase64: "aGVsbG8=",
		ImageMIME:   "image/jpeg",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"invoice_number":"INV-042"}`, content)

	require.Len(t, captured.Messages, 1)
	parts := captured.Messages[0].Content
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "Extract the fields.", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", parts[1].ImageURL.URL)
	assert.Equal(t, 0.1, captured.Temperature)
	assert.Equal(t, 2000, captured.MaxTokens)
}

func TestChatComplete_StripsExistingDataURI(t *testing.T) {
	var captured chatPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "ok"}},
			},
		})
	}))
	defer server.Close()

	client := NewClientWithEndpoint(testPoeConfig(), server.URL)
	_, err := client.ChatComplete(context.Background(), port.ChatRequest{
		APIKey:      "test-key-123456",
		Model:       "vision-model",
		Prompt:      "p",
		ImageBase64: "data:image/png;base64,aGVsbG8=",
		ImageMIME:   "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", captured.Messages[0].Content[1].ImageURL.URL)
}

func TestChatComplete_TextOnly(t *testing.T) {
	var captured chatPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "ok"}},
			},
		})
	}))
	defer server.Close()

	client := NewClientWithEndpoint(testPoeConfig(), server.URL)
	_, err := client.ChatComplete(context.Background(), port.ChatRequest{
		APIKey: "test-key-123456",
		Model:  "text-model",
		Prompt: "Suggest mappings.",
	})
	require.NoError(t, err)
	require.Len(t, captured.Messages[0].Content, 1)
	assert.Equal(t, "text", captured.Messages[0].Content[0].Type)
}

func TestChatComplete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	client := NewClientWithEndpoint(testPoeConfig(), server.URL)
	_, err := client.ChatComplete(context.Background(), port.ChatRequest{
		APIKey: "test-key-123456",
		Model:  "vision-model",
		Prompt: "p",
	})
	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
}

func TestChatComplete_MissingModel(t *testing.T) {
	client := NewClientWithEndpoint(testPoeConfig(), "http://unused")
	_, err := client.ChatComplete(context.Background(), port.ChatRequest{APIKey: "k-12345678"})
	assert.ErrorIs(t, err, domain.ErrMissingModel)
}

func TestKeyDigestNeverLeaksFullKey(t *testing.T) {
	assert.Equal(t, "sk-abcde...", keyDigest("sk-abcdefghijklmnop"))
	assert.Equal(t, "********", keyDigest("short"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Gpt 4o Mini", displayName("gpt-4o-mini"))
	assert.Equal(t, "Claude Sonnet", displayName("anthropic/claude_sonnet"))
}
