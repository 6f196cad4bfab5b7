package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldDef describes one extraction key inside a mapping profile.
type FieldDef struct {
	Label string `json:"label"`
}

// FieldList is an ordered mapping of extraction key to FieldDef. Insertion
// order is preserved and defines render order; it survives JSON round-trips
// because the list marshals to a plain JSON object and decodes it token by
// token. Keys are unique: setting an existing key replaces the definition
// in place.
type FieldList struct {
	keys []string
	defs map[string]FieldDef
}

// NewFieldList builds a FieldList from alternating key/label pairs.
func NewFieldList(pairs ...string) FieldList {
	var l FieldList
	for i := 0; i+1 < len(pairs); i += 2 {
		l.Set(pairs[i], FieldDef{Label: pairs[i+1]})
	}
	return l
}

// Set adds or replaces a field definition. New keys append at the end.
func (l *FieldList) Set(key string, def FieldDef) {
	if l.defs == nil {
		l.defs = make(map[string]FieldDef)
	}
	if _, ok := l.defs[key]; !ok {
		l.keys = append(l.keys, key)
	}
	l.defs[key] = def
}

// Get returns the definition for key.
func (l *FieldList) Get(key string) (FieldDef, bool) {
	def, ok := l.defs[key]
	return def, ok
}

// Has reports whether key is present.
func (l *FieldList) Has(key string) bool {
	_, ok := l.defs[key]
	return ok
}

// Keys returns the keys in insertion order.
func (l *FieldList) Keys() []string {
	out := make([]string, len(l.keys))
	copy(out, l.keys)
	return out
}

// Len returns the number of fields.
func (l *FieldList) Len() int { return len(l.keys) }

// Clone returns a deep copy.
func (l *FieldList) Clone() FieldList {
	var c FieldList
	for _, k := range l.keys {
		c.Set(k, l.defs[k])
	}
	return c
}

// MarshalJSON emits a JSON object with keys in insertion order. An empty
// list marshals to {}, never null.
func (l FieldList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range l.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(l.defs[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order.
func (l *FieldList) UnmarshalJSON(data []byte) error {
	l.keys = nil
	l.defs = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("fields: expected object key, got %v", tok)
		}
		var def FieldDef
		if err := dec.Decode(&def); err != nil {
			return fmt.Errorf("fields: decoding %q: %w", key, err)
		}
		l.Set(key, def)
	}
	_, err = dec.Token() // closing brace
	return err
}

// Mappings is an ordered mapping of extraction key to destination form-field
// identifier. Like FieldList it preserves insertion order across JSON
// round-trips, and its empty state is a defined {} object.
type Mappings struct {
	keys []string
	vals map[string]string
}

// NewMappings builds a Mappings from alternating key/destination pairs.
func NewMappings(pairs ...string) Mappings {
	var m Mappings
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// Set adds or replaces a mapping. New keys append at the end.
func (m *Mappings) Set(key, dest string) {
	if m.vals == nil {
		m.vals = make(map[string]string)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = dest
}

// Get returns the destination for key.
func (m *Mappings) Get(key string) (string, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the extraction keys in insertion order.
func (m *Mappings) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of mappings.
func (m *Mappings) Len() int { return len(m.keys) }

// MarshalJSON emits a JSON object with keys in insertion order.
func (m Mappings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order.
func (m *Mappings) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.vals = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("mappings: expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("mappings: expected object key, got %v", tok)
		}
		var dest string
		if err := dec.Decode(&dest); err != nil {
			return fmt.Errorf("mappings: decoding %q: %w", key, err)
		}
		m.Set(key, dest)
	}
	_, err = dec.Token()
	return err
}

// MappingProfile is a named set of extraction keys. Built-in profiles are
// compiled in and immutable; custom profiles carry generated "custom_"
// slugs and live in the option store.
type MappingProfile struct {
	Slug    string    `json:"slug"`
	Name    string    `json:"name"`
	Fields  FieldList `json:"fields"`
	Builtin bool      `json:"builtin,omitempty"`
}

// FieldConfig is the per-form-field extraction configuration, created by the
// host's field editor and consumed read-only by the pipeline.
type FieldConfig struct {
	APIKey   string   `json:"api_key"`
	Model    string   `json:"model"`
	AutoCrop bool     `json:"auto_crop"`
	Profile  string   `json:"profile"`
	Mappings Mappings `json:"mappings"`
}

// ExtractionResult is the transient per-request outcome of an analysis pass.
// Values are either the extracted string or null for keys the model could
// not determine. Never persisted.
type ExtractionResult struct {
	ExtractedData map[string]*string `json:"extracted_data"`
}

// SelectOption is one choice of a dropdown destination field.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DestinationField describes a form field extracted values may be written
// to. TimeFormat is "12" or "24" and only meaningful for time fields.
type DestinationField struct {
	ID         string               `json:"id"`
	Label      string               `json:"label"`
	Type       DestinationFieldType `json:"type"`
	Options    []SelectOption       `json:"options,omitempty"`
	TimeFormat string               `json:"time_format,omitempty"`
}

// ModelInfo is one entry of the provider's image-capable model catalog.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
