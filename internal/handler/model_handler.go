package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/guilamu/gravity-extract/internal/port"
)

// ModelHandler serves the provider's image-capable model catalog.
type ModelHandler struct {
	gateway port.AiGateway
}

// NewModelHandler creates a ModelHandler.
func NewModelHandler(gateway port.AiGateway) *ModelHandler {
	return &ModelHandler{gateway: gateway}
}

// refresher is implemented by gateways with an invalidatable model cache.
type refresher interface {
	InvalidateModels(apiKey string)
}

// List returns image-capable models for the supplied API key. The key
// travels in a header so it never lands in access logs. refresh=true
// bypasses the cache.
//
// GET /api/v1/models
func (h *ModelHandler) List(c *gin.Context) {
	apiKey := c.GetHeader("X-Api-Key")
	if apiKey == "" {
		RespondError(c, http.StatusBadRequest, "MISSING_API_KEY", "X-Api-Key header is required")
		return
	}

	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		if r, ok := h.gateway.(refresher); ok {
			r.InvalidateModels(apiKey)
		}
	}

	models, err := h.gateway.ListImageModels(c.Request.Context(), apiKey)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"models": models})
}
