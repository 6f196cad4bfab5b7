package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldList_OrderSurvivesJSONRoundTrip(t *testing.T) {
	original := NewFieldList("zeta", "Zeta", "alpha", "Alpha", "omega", "Omega")

	raw, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":{"label":"Zeta"},"alpha":{"label":"Alpha"},"omega":{"label":"Omega"}}`, string(raw))

	var decoded FieldList
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"zeta", "alpha", "omega"}, decoded.Keys())
}

func TestFieldList_SetReplacesInPlace(t *testing.T) {
	l := NewFieldList("a", "A", "b", "B")
	l.Set("a", FieldDef{Label: "A2"})

	assert.Equal(t, []string{"a", "b"}, l.Keys(), "replacing must not reorder")
	def, _ := l.Get("a")
	assert.Equal(t, "A2", def.Label)
}

func TestFieldList_EmptyMarshalsToObject(t *testing.T) {
	raw, err := json.Marshal(FieldList{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestFieldList_RejectsNonObject(t *testing.T) {
	var l FieldList
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &l))
}

func TestFieldList_CloneIsIndependent(t *testing.T) {
	l := NewFieldList("a", "A")
	c := l.Clone()
	c.Set("b", FieldDef{Label: "B"})

	assert.False(t, l.Has("b"))
	assert.True(t, c.Has("b"))
}

func TestMappings_OrderSurvivesJSONRoundTrip(t *testing.T) {
	original := NewMappings("invoice_number", "3", "total_amount", "7")

	raw, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, `{"invoice_number":"3","total_amount":"7"}`, string(raw))

	var decoded Mappings
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"invoice_number", "total_amount"}, decoded.Keys())
	dest, ok := decoded.Get("total_amount")
	require.True(t, ok)
	assert.Equal(t, "7", dest)
}

func TestFieldConfig_JSONShape(t *testing.T) {
	cfg := FieldConfig{
		APIKey:   "k",
		Model:    "m",
		AutoCrop: true,
		Profile:  "supplier_invoice",
		Mappings: NewMappings("invoice_number", "3"),
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	var decoded FieldConfig
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, cfg.Profile, decoded.Profile)
	assert.Equal(t, 1, decoded.Mappings.Len())
}

func TestUpstreamError_Message(t *testing.T) {
	withStatus := &UpstreamError{StatusCode: 429, Body: "slow down"}
	assert.Contains(t, withStatus.Error(), "429")

	withoutStatus := &UpstreamError{Body: "no choices"}
	assert.Contains(t, withoutStatus.Error(), "no choices")
}
