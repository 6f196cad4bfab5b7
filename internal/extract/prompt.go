package extract

import (
	"fmt"
	"strings"

	"github.com/guilamu/gravity-extract/internal/domain"
	"github.com/guilamu/gravity-extract/internal/profile"
)

// FullExtractionKey asks the model for a complete text transcription of the
// document instead of one targeted value.
const FullExtractionKey = "full_extraction"

// BuildExtractionPrompt assembles the instruction sent alongside a document
// image. The itemized key list excludes the full-extraction sentinel, which
// gets its own transcription instruction instead.
func BuildExtractionPrompt(profileSlug string, keys []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are analyzing %s. Extract the following fields from the image and return them as a JSON object.\n\n", profile.DocumentDescription(profileSlug))

	wantFull := false
	b.WriteString("Fields to extract:\n")
	for _, key := range keys {
		if key == FullExtractionKey {
			wantFull = true
			continue
		}
		fmt.Fprintf(&b, "- %s\n", key)
	}
	if wantFull {
		fmt.Fprintf(&b, "- %s: the complete raw text content of the document, transcribed as-is\n", FullExtractionKey)
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Return ONLY a valid JSON object, no explanation or markdown\n")
	b.WriteString("- Use exactly the field names listed above as JSON keys\n")
	b.WriteString("- Monetary amounts: bare numbers without currency symbols or thousands separators (e.g. 1234.56)\n")
	b.WriteString("- Dates: ISO format YYYY-MM-DD\n")
	b.WriteString("- Times: 24-hour HH:MM format\n")
	b.WriteString("- Use null for any field not present or not readable in the document\n")

	return b.String()
}

// BuildAutomapPrompt asks the model to pair extraction keys with destination
// form fields. Text-only; no image travels with it.
func BuildAutomapPrompt(keys []string, fields []domain.DestinationField) string {
	var b strings.Builder

	b.WriteString("Match document extraction fields to form fields.\n\n")

	b.WriteString("Extraction fields:\n")
	for _, key := range keys {
		if key == FullExtractionKey {
			continue
		}
		fmt.Fprintf(&b, "- %s\n", key)
	}

	b.WriteString("\nForm fields (id: label):\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.ID, f.Label)
	}

	b.WriteString("\nReturn ONLY a JSON object mapping each extraction field name to the best-matching form field id. ")
	b.WriteString("Omit extraction fields that have no sensible match. No explanation, no markdown.\n")

	return b.String()
}

// BuildDetectPrompt asks the model to propose extraction fields for an
// unfamiliar document layout.
func BuildDetectPrompt() string {
	var b strings.Builder
	b.WriteString("Look at this document image and identify every piece of structured data worth extracting.\n\n")
	b.WriteString("Return ONLY a JSON object where each key is a snake_case field name and each value is a short human-readable label, for example:\n")
	b.WriteString(`{"invoice_number": "Invoice Number", "supplier_name": "Supplier Name"}` + "\n\n")
	b.WriteString("No explanation, no markdown.\n")
	return b.String()
}
