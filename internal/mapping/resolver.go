package mapping

import (
	"log"
	"strings"

	"github.com/guilamu/gravity-extract/internal/domain"
)

// Resolver turns extraction results into concrete form-field writes,
// adapting each value to its destination's type: plain text directly,
// dropdowns by option matching, time fields by tolerant parsing into
// hour/minute sub-inputs.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Populate resolves extracted values against the key-to-field mappings.
// The returned map is keyed by form input identifier (including time
// sub-inputs like "5_1"); count is the number of mapped extraction keys
// that produced at least one write. Null values, unknown destinations, and
// unmatched dropdown values are skipped, never errors.
func (r *Resolver) Populate(extracted map[string]*string, mappings domain.Mappings, fields []domain.DestinationField) (map[string]string, int) {
	byID := make(map[string]domain.DestinationField, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
	}

	writes := make(map[string]string)
	count := 0
	for _, key := range mappings.Keys() {
		fieldID, _ := mappings.Get(key)
		value, ok := extracted[key]
		if !ok || value == nil || *value == "" {
			continue
		}
		field, known := byID[fieldID]
		if !known {
			// The form changed since the mapping was saved; skip quietly.
			continue
		}

		switch field.Type {
		case domain.DestinationTime:
			t, parsed := ParseTime(*value)
			if !parsed {
				log.Printf("mapping.Resolver.Populate: unparseable time %q for field %s", *value, fieldID)
				continue
			}
			for id, v := range t.SubInputs(fieldID, field.TimeFormat) {
				writes[id] = v
			}
			count++
		case domain.DestinationSelect:
			option, matched := matchOption(*value, field.Options)
			if !matched {
				log.Printf("mapping.Resolver.Populate: no option match for %q in field %s", *value, fieldID)
				continue
			}
			writes[fieldID] = option
			count++
		default:
			writes[fieldID] = *value
			count++
		}
	}
	return writes, count
}

// matchOption resolves an extracted value to a dropdown option value.
// Exact case-insensitive matches on option value or label win; otherwise a
// bidirectional substring match (option contains value, or value contains
// option) is accepted.
func matchOption(value string, options []domain.SelectOption) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(value))
	if needle == "" {
		return "", false
	}

	for _, opt := range options {
		if strings.EqualFold(needle, opt.Value) || strings.EqualFold(needle, opt.Label) {
			return opt.Value, true
		}
	}
	for _, opt := range options {
		optValue := strings.ToLower(strings.TrimSpace(opt.Value))
		optLabel := strings.ToLower(strings.TrimSpace(opt.Label))
		if optValue != "" && (strings.Contains(optValue, needle) || strings.Contains(needle, optValue)) {
			return opt.Value, true
		}
		if optLabel != "" && (strings.Contains(optLabel, needle) || strings.Contains(needle, optLabel)) {
			return opt.Value, true
		}
	}
	return "", false
}
