package mapping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilamu/gravity-extract/internal/config"
	"github.com/guilamu/gravity-extract/internal/domain"
	"github.com/guilamu/gravity-extract/internal/port"
)

type fakeGateway struct {
	lastReq port.ChatRequest
	reply   string
	err     error
}

func (f *fakeGateway) ListImageModels(ctx context.Context, apiKey string) ([]domain.ModelInfo, error) {
	return nil, nil
}

func (f *fakeGateway) ChatComplete(ctx context.Context, req port.ChatRequest) (string, error) {
	f.lastReq = req
	return f.reply, f.err
}

func destFields() []domain.DestinationField {
	return []domain.DestinationField{
		{ID: "3", Label: "Invoice Number", Type: domain.DestinationText},
		{ID: "7", Label: "Total", Type: domain.DestinationText},
	}
}

func TestSuggest_MapsValidPairs(t *testing.T) {
	gw := &fakeGateway{reply: "```json\n{\"invoice_number\": \"3\", \"total_amount\": 7}\n```"}
	am := NewAutomapper(gw, config.PoeConfig{Temperature: 0.1, AutomapMaxToken: 1000})

	mappings, err := am.Suggest(context.Background(), "key-12345678", "text-model",
		[]string{"invoice_number", "total_amount"}, destFields())
	require.NoError(t, err)

	assert.Equal(t, 2, mappings.Len())
	dest, _ := mappings.Get("invoice_number")
	assert.Equal(t, "3", dest)
	dest, _ = mappings.Get("total_amount")
	assert.Equal(t, "7", dest, "numeric field ids must coerce to strings")

	assert.Empty(t, gw.lastReq.ImageBase64, "automap is text-only")
	assert.Equal(t, 1000, gw.lastReq.MaxTokens)
}

func TestSuggest_DropsUnknownKeysAndFields(t *testing.T) {
	gw := &fakeGateway{reply: `{"invoice_number": "3", "hallucinated_key": "7", "total_amount": "99"}`}
	am := NewAutomapper(gw, config.PoeConfig{})

	mappings, err := am.Suggest(context.Background(), "key-12345678", "text-model",
		[]string{"invoice_number", "total_amount"}, destFields())
	require.NoError(t, err)

	assert.Equal(t, 1, mappings.Len())
	_, ok := mappings.Get("hallucinated_key")
	assert.False(t, ok)
	_, ok = mappings.Get("total_amount")
	assert.False(t, ok, "unknown destination field must be dropped")
}

func TestSuggest_UnparseableReplyYieldsEmpty(t *testing.T) {
	gw := &fakeGateway{reply: "I cannot help with that."}
	am := NewAutomapper(gw, config.PoeConfig{})

	mappings, err := am.Suggest(context.Background(), "key-12345678", "text-model",
		[]string{"invoice_number"}, destFields())
	require.NoError(t, err)
	assert.Zero(t, mappings.Len())
}

func TestSuggest_EmptyInputsSkipModelCall(t *testing.T) {
	gw := &fakeGateway{}
	am := NewAutomapper(gw, config.PoeConfig{})

	mappings, err := am.Suggest(context.Background(), "key-12345678", "text-model", nil, destFields())
	require.NoError(t, err)
	assert.Zero(t, mappings.Len())
	assert.Empty(t, gw.lastReq.Model, "gateway must not be called")
}

func TestSuggest_MissingCredentials(t *testing.T) {
	am := NewAutomapper(&fakeGateway{}, config.PoeConfig{})
	_, err := am.Suggest(context.Background(), "", "m", []string{"k"}, destFields())
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)

	_, err = am.Suggest(context.Background(), "key-12345678", "", []string{"k"}, destFields())
	assert.ErrorIs(t, err, domain.ErrMissingModel)
}
