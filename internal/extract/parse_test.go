package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseKeyValues_FencedBlock(t *testing.T) {
	raw := "Here is the data:\n```json\n{\"invoice_number\": \"INV-042\", \"total\": 125.50}\n```\nDone."
	out := ParseKeyValues(raw, []string{"invoice_number", "total", "missing"})

	assert.Equal(t, strPtr("INV-042"), out["invoice_number"])
	assert.Equal(t, strPtr("125.5"), out["total"])
	assert.Nil(t, out["missing"])
}

func TestParseKeyValues_BareFence(t *testing.T) {
	raw := "```\n{\"currency\": \"EUR\"}\n```"
	out := ParseKeyValues(raw, []string{"currency"})
	assert.Equal(t, strPtr("EUR"), out["currency"])
}

func TestParseKeyValues_BraceSpan(t *testing.T) {
	raw := `Sure! The extracted data is {"supplier_name": "ACME Corp", "amount": null} as requested.`
	out := ParseKeyValues(raw, []string{"supplier_name", "amount"})

	assert.Equal(t, strPtr("ACME Corp"), out["supplier_name"])
	assert.Nil(t, out["amount"], "explicit JSON null stays null")
}

func TestParseKeyValues_RawJSON(t *testing.T) {
	out := ParseKeyValues(`{"invoice_date": "2026-08-27"}`, []string{"invoice_date"})
	assert.Equal(t, strPtr("2026-08-27"), out["invoice_date"])
}

func TestParseKeyValues_TextFallback(t *testing.T) {
	raw := "I could not produce JSON but here you go.\nInvoice Number: INV-7\nTotal Amount - 99.95\n"
	out := ParseKeyValues(raw, []string{"invoice_number", "total_amount", "currency"})

	assert.Equal(t, strPtr("INV-7"), out["invoice_number"])
	assert.Equal(t, strPtr("99.95"), out["total_amount"])
	assert.Nil(t, out["currency"])
}

func TestParseKeyValues_GarbageNeverErrors(t *testing.T) {
	out := ParseKeyValues("complete nonsense with no structure at all", []string{"a", "b"})
	require.Len(t, out, 2)
	assert.Nil(t, out["a"])
	assert.Nil(t, out["b"])
}

func TestParseKeyValues_EveryExpectedKeyPresent(t *testing.T) {
	keys := []string{"one", "two", "three"}
	out := ParseKeyValues(`{"one": "1"}`, keys)
	require.Len(t, out, 3)
	for _, k := range keys {
		_, present := out[k]
		assert.True(t, present, k)
	}
}

func TestParseKeyValues_CoercesScalars(t *testing.T) {
	raw := `{"count": 3, "flag": true, "nested": {"a": 1}}`
	out := ParseKeyValues(raw, []string{"count", "flag", "nested"})

	assert.Equal(t, strPtr("3"), out["count"])
	assert.Equal(t, strPtr("true"), out["flag"])
	assert.Equal(t, strPtr(`{"a":1}`), out["nested"])
}

func TestParseKeyValues_IgnoresUnexpectedKeys(t *testing.T) {
	out := ParseKeyValues(`{"wanted": "v", "extra": "x"}`, []string{"wanted"})
	require.Len(t, out, 1)
	assert.Equal(t, strPtr("v"), out["wanted"])
}

func TestParseObject_PrefersFencedBlock(t *testing.T) {
	raw := "{\"outside\": true} ```json\n{\"inside\": true}\n```"
	obj, ok := ParseObject(raw)
	require.True(t, ok)
	assert.Contains(t, obj, "inside")
}

func TestParseKeyLabels_PreservesOrder(t *testing.T) {
	raw := "```json\n{\"zeta_field\": \"Zeta\", \"alpha_field\": \"Alpha\"}\n```"
	fields, ok := ParseKeyLabels(raw)
	require.True(t, ok)
	require.Len(t, fields, 2)
	assert.Equal(t, "zeta_field", fields[0].Key)
	assert.Equal(t, "alpha_field", fields[1].Key)
	assert.Equal(t, "Zeta", fields[0].Label)
}

func TestParseKeyLabels_RejectsGarbage(t *testing.T) {
	_, ok := ParseKeyLabels("no json here")
	assert.False(t, ok)
}
