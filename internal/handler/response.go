package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guilamu/gravity-extract/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return http.StatusBadGateway, "UPSTREAM_ERROR", upstream.Error()
	}

	switch {
	case errors.Is(err, domain.ErrMissingAPIKey):
		return http.StatusBadRequest, "MISSING_API_KEY", "api key is required"
	case errors.Is(err, domain.ErrMissingModel):
		return http.StatusBadRequest, "MISSING_MODEL", "model is required"
	case errors.Is(err, domain.ErrUnknownMappingKey):
		return http.StatusBadRequest, "UNKNOWN_MAPPING_KEY", "mapping key is not part of the selected profile"
	case errors.Is(err, domain.ErrMissingImage):
		return http.StatusBadRequest, "MISSING_IMAGE", "image data is required"
	case errors.Is(err, domain.ErrProfileNameRequired):
		return http.StatusBadRequest, "PROFILE_NAME_REQUIRED", "profile name is required"
	case errors.Is(err, domain.ErrProfileFieldsRequired):
		return http.StatusBadRequest, "PROFILE_FIELDS_REQUIRED", "at least one field must be enabled"
	case errors.Is(err, domain.ErrInvalidProfileFormat):
		return http.StatusBadRequest, "INVALID_PROFILE_FORMAT", "profile document must contain name and fields"
	case errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound, "PROFILE_NOT_FOUND", "profile not found"
	case errors.Is(err, domain.ErrBuiltinProfile):
		return http.StatusForbidden, "BUILTIN_PROFILE", "built-in profiles cannot be modified"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, png, webp"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrPDFConversion):
		return http.StatusUnprocessableEntity, "PDF_CONVERSION_FAILED", "could not convert pdf to image"
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusInternalServerError, "UPLOAD_FAILED", "file upload to storage failed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	RespondError(c, status, code, msg)
}
