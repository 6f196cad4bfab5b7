package domain

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors: surfaced before any network call is made.
	ErrMissingAPIKey     = errors.New("api key is required")
	ErrMissingModel      = errors.New("model is required")
	ErrMissingImage      = errors.New("image data is required")
	ErrUnknownMappingKey = errors.New("mapping key is not part of the profile")

	// Validation errors: profile save/import preconditions.
	ErrProfileNameRequired   = errors.New("profile name is required")
	ErrProfileFieldsRequired = errors.New("at least one field must be enabled")
	ErrInvalidProfileFormat  = errors.New("invalid profile format")
	ErrProfileNotFound       = errors.New("profile not found")
	ErrBuiltinProfile        = errors.New("built-in profiles cannot be modified")

	// Preprocessing errors.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrPDFConversion       = errors.New("pdf conversion failed")

	ErrUploadFailed = errors.New("file upload to storage failed")
)

// UpstreamError reports a non-2xx response or malformed body from the AI
// provider. Never retried automatically.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream API returned status %d: %s", e.StatusCode, e.Body)
	}
	return "upstream API error: " + e.Body
}
