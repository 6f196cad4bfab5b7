package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/guilamu/gravity-extract/internal/domain"
	"github.com/guilamu/gravity-extract/internal/extract"
	"github.com/guilamu/gravity-extract/internal/mapping"
	"github.com/guilamu/gravity-extract/internal/service"
)

// ExtractHandler exposes the extraction pipeline: upload, analyze, field
// detection, mapping suggestion, and server-side populate.
type ExtractHandler struct {
	uploads    *service.UploadService
	extractor  *extract.Service
	automapper *mapping.Automapper
	resolver   *mapping.Resolver
}

// NewExtractHandler creates an ExtractHandler.
func NewExtractHandler(uploads *service.UploadService, extractor *extract.Service, automapper *mapping.Automapper, resolver *mapping.Resolver) *ExtractHandler {
	return &ExtractHandler{
		uploads:    uploads,
		extractor:  extractor,
		automapper: automapper,
		resolver:   resolver,
	}
}

// Upload receives a multipart document, archives it, and returns the
// preprocessed model-ready image. When a field configuration travels in
// the optional "config" form field (JSON), extraction runs in-band; an
// extraction failure is reported inside the payload while the upload
// itself still succeeds.
//
// POST /api/v1/extract/upload
func (h *ExtractHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "multipart field 'file' is required")
		return
	}

	var cfg *domain.FieldConfig
	if raw := c.PostForm("config"); raw != "" {
		cfg = &domain.FieldConfig{}
		if err := json.Unmarshal([]byte(raw), cfg); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid config form field: "+err.Error())
			return
		}
	}
	// A malformed auto_crop override falls back to the config's flag
	// rather than silently disabling the crop.
	autoCrop := cfg == nil || cfg.AutoCrop
	if raw := c.PostForm("auto_crop"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			autoCrop = v
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		HandleError(c, err)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := h.uploads.HandleUpload(c.Request.Context(), file, fileHeader.Filename, contentType, fileHeader.Size, autoCrop)
	if err != nil {
		HandleError(c, err)
		return
	}

	payload := gin.H{"upload": result}
	if cfg != nil {
		extraction, err := h.extractor.Analyze(c.Request.Context(), extract.AnalyzeRequest{
			Config:      *cfg,
			ImageBase64: result.ImageBase64,
			ImageMIME:   result.ImageMIME,
		})
		if err != nil {
			_, code, msg := MapDomainError(err)
			payload["extraction_error"] = &APIError{Code: code, Message: msg}
		} else {
			payload["extraction"] = extraction
			payload["mappings"] = cfg.Mappings
		}
	}
	RespondOK(c, payload)
}

// UploadURL returns a presigned download link for an archived upload. The
// storage key travels as a query parameter because it contains a slash.
//
// GET /api/v1/uploads/url?key=uploads/<id>.<ext>
func (h *ExtractHandler) UploadURL(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_KEY", "query parameter 'key' is required")
		return
	}

	url, err := h.uploads.PresignedURL(c.Request.Context(), key)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

// DeleteUpload removes an archived upload from object storage.
//
// DELETE /api/v1/uploads?key=uploads/<id>.<ext>
func (h *ExtractHandler) DeleteUpload(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_KEY", "query parameter 'key' is required")
		return
	}

	if err := h.uploads.DeleteUpload(c.Request.Context(), key); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": key})
}

type analyzeRequest struct {
	Config      domain.FieldConfig `json:"config"`
	ImageBase64 string             `json:"image_base64"`
	ImageMIME   string             `json:"image_mime"`
}

// Analyze runs one extraction pass over a prepared image.
//
// POST /api/v1/extract/analyze
func (h *ExtractHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	result, err := h.extractor.Analyze(c.Request.Context(), extract.AnalyzeRequest{
		Config:      req.Config,
		ImageBase64: req.ImageBase64,
		ImageMIME:   req.ImageMIME,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

type detectRequest struct {
	APIKey      string `json:"api_key"`
	Model       string `json:"model"`
	ImageBase64 string `json:"image_base64"`
	ImageMIME   string `json:"image_mime"`
}

// DetectFields proposes extraction fields for a document image.
//
// POST /api/v1/extract/detect-fields
func (h *ExtractHandler) DetectFields(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	fields, err := h.extractor.DetectFields(c.Request.Context(), req.APIKey, req.Model, req.ImageBase64, req.ImageMIME)
	if err != nil {
		HandleError(c, err)
		return
	}
	if fields == nil {
		fields = []extract.KeyLabel{}
	}
	RespondOK(c, gin.H{"fields": fields})
}

type automapRequest struct {
	APIKey string                    `json:"api_key"`
	Model  string                    `json:"model"`
	Keys   []string                  `json:"keys"`
	Fields []domain.DestinationField `json:"fields"`
}

// Automap suggests extraction-key to form-field mappings.
//
// POST /api/v1/extract/automap
func (h *ExtractHandler) Automap(c *gin.Context) {
	var req automapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	mappings, err := h.automapper.Suggest(c.Request.Context(), req.APIKey, req.Model, req.Keys, req.Fields)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"mappings": mappings})
}

type populateRequest struct {
	ExtractedData map[string]*string        `json:"extracted_data"`
	Mappings      domain.Mappings           `json:"mappings"`
	Fields        []domain.DestinationField `json:"fields"`
}

// Populate resolves extracted values into concrete form-field writes.
//
// POST /api/v1/extract/populate
func (h *ExtractHandler) Populate(c *gin.Context) {
	var req populateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	writes, count := h.resolver.Populate(req.ExtractedData, req.Mappings, req.Fields)
	RespondOK(c, gin.H{"writes": writes, "populated_count": count})
}
