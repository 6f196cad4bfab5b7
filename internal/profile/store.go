package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guilamu/gravity-extract/internal/domain"
	"github.com/guilamu/gravity-extract/internal/port"
)

// optionKey is where the custom-profile document lives in the option store.
const optionKey = "gravity_extract_custom_profiles"

// Store manages user-defined mapping profiles on top of a key-value option
// store. Built-in profiles are compiled in (builtin.go) and are never
// written here; Get falls through to them so the pipeline can resolve any
// slug through one call.
type Store struct {
	options port.OptionStore
}

// NewStore creates a profile Store.
func NewStore(options port.OptionStore) *Store {
	return &Store{options: options}
}

// storedProfile is the persisted shape of one custom profile.
type storedProfile struct {
	Slug   string           `json:"slug"`
	Name   string           `json:"name"`
	Fields domain.FieldList `json:"fields"`
}

func (s *Store) load(ctx context.Context) ([]storedProfile, error) {
	raw, err := s.options.Get(ctx, optionKey)
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var profiles []storedProfile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("decoding stored profiles: %w", err)
	}
	return profiles, nil
}

func (s *Store) persist(ctx context.Context, profiles []storedProfile) error {
	raw, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("encoding profiles: %w", err)
	}
	if err := s.options.Set(ctx, optionKey, raw); err != nil {
		return fmt.Errorf("saving profiles: %w", err)
	}
	return nil
}

// List returns all custom profiles in creation order. Built-in profiles are
// not included; callers wanting the full set combine with Builtins().
func (s *Store) List(ctx context.Context) ([]domain.MappingProfile, error) {
	stored, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MappingProfile, 0, len(stored))
	for _, p := range stored {
		out = append(out, domain.MappingProfile{Slug: p.Slug, Name: p.Name, Fields: p.Fields})
	}
	return out, nil
}

// Get resolves a slug to a profile, checking custom profiles first and
// falling back to the built-in table.
func (s *Store) Get(ctx context.Context, slug string) (*domain.MappingProfile, error) {
	stored, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range stored {
		if p.Slug == slug {
			return &domain.MappingProfile{Slug: p.Slug, Name: p.Name, Fields: p.Fields}, nil
		}
	}
	if p, ok := Builtin(slug); ok {
		return &p, nil
	}
	return nil, domain.ErrProfileNotFound
}

// Save creates or replaces a custom profile. An empty slug means create: a
// unique slug is generated from name. A non-empty slug is an idempotent
// upsert that fully replaces the field list.
func (s *Store) Save(ctx context.Context, slug, name string, fields domain.FieldList) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.ErrProfileNameRequired
	}
	if fields.Len() == 0 {
		return "", domain.ErrProfileFieldsRequired
	}
	if _, ok := Builtin(slug); ok {
		return "", domain.ErrBuiltinProfile
	}

	stored, err := s.load(ctx)
	if err != nil {
		return "", err
	}

	if slug == "" {
		slug = generateSlug(name, stored)
	}

	replaced := false
	for i := range stored {
		if stored[i].Slug == slug {
			stored[i].Name = name
			stored[i].Fields = fields
			replaced = true
			break
		}
	}
	if !replaced {
		stored = append(stored, storedProfile{Slug: slug, Name: name, Fields: fields})
	}

	if err := s.persist(ctx, stored); err != nil {
		return "", err
	}
	return slug, nil
}

// Delete removes a custom profile.
func (s *Store) Delete(ctx context.Context, slug string) error {
	if _, ok := Builtin(slug); ok {
		return domain.ErrBuiltinProfile
	}
	stored, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range stored {
		if stored[i].Slug == slug {
			stored = append(stored[:i], stored[i+1:]...)
			return s.persist(ctx, stored)
		}
	}
	return domain.ErrProfileNotFound
}

// Duplicate copies an existing profile's fields verbatim under a new
// generated slug and the supplied name. The source may be built-in.
func (s *Store) Duplicate(ctx context.Context, slug, newName string) (string, error) {
	if strings.TrimSpace(newName) == "" {
		return "", domain.ErrProfileNameRequired
	}
	src, err := s.Get(ctx, slug)
	if err != nil {
		return "", err
	}
	return s.Save(ctx, "", newName, src.Fields.Clone())
}

// importDoc is the interchange format: {"name": ..., "fields": {...}}.
type importDoc struct {
	Name   *string           `json:"name"`
	Fields *domain.FieldList `json:"fields"`
}

// ImportJSON creates a profile from an exported JSON document. Both
// top-level keys must be present; anything else is an invalid-format error,
// distinct from a plain parse failure.
func (s *Store) ImportJSON(ctx context.Context, data []byte) (string, error) {
	var doc importDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidProfileFormat, err)
	}
	if doc.Name == nil || doc.Fields == nil {
		return "", domain.ErrInvalidProfileFormat
	}
	return s.Save(ctx, "", *doc.Name, *doc.Fields)
}

// ExportJSON renders a profile as the interchange document.
func (s *Store) ExportJSON(ctx context.Context, slug string) ([]byte, error) {
	p, err := s.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(struct {
		Name   string           `json:"name"`
		Fields domain.FieldList `json:"fields"`
	}{Name: p.Name, Fields: p.Fields}, "", "  ")
}

// generateSlug derives a unique "custom_"-prefixed slug from a profile
// name, appending _1, _2, ... on collision with existing custom or
// built-in slugs.
func generateSlug(name string, existing []storedProfile) string {
	slugged := slugify(name)
	if slugged == "" {
		slugged = "profile"
	}
	base := "custom_" + slugged

	taken := make(map[string]bool, len(existing))
	for _, p := range existing {
		taken[p.Slug] = true
	}

	slug := base
	for counter := 1; taken[slug] || isBuiltinSlug(slug); counter++ {
		slug = fmt.Sprintf("%s_%d", base, counter)
	}
	return slug
}

func isBuiltinSlug(slug string) bool {
	_, ok := builtins[slug]
	return ok
}

func slugify(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
