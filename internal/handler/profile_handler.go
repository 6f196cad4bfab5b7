package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guilamu/gravity-extract/internal/domain"
	"github.com/guilamu/gravity-extract/internal/profile"
)

// ProfileHandler manages mapping profiles: built-in listing, custom CRUD,
// duplication, and JSON import/export.
type ProfileHandler struct {
	store *profile.Store
}

// NewProfileHandler creates a ProfileHandler.
func NewProfileHandler(store *profile.Store) *ProfileHandler {
	return &ProfileHandler{store: store}
}

// List returns built-in and custom profiles.
//
// GET /api/v1/profiles
func (h *ProfileHandler) List(c *gin.Context) {
	customs, err := h.store.List(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	if customs == nil {
		customs = []domain.MappingProfile{}
	}
	RespondOK(c, gin.H{
		"builtin": profile.Builtins(),
		"custom":  customs,
	})
}

// Get returns one profile by slug.
//
// GET /api/v1/profiles/:slug
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, p)
}

type saveProfileRequest struct {
	Slug   string           `json:"slug"`
	Name   string           `json:"name"`
	Fields domain.FieldList `json:"fields"`
}

// Save creates or updates a custom profile. An empty slug creates a new
// profile with a generated slug.
//
// POST /api/v1/profiles
func (h *ProfileHandler) Save(c *gin.Context) {
	var req saveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	slug, err := h.store.Save(c.Request.Context(), req.Slug, req.Name, req.Fields)
	if err != nil {
		HandleError(c, err)
		return
	}
	if req.Slug == "" {
		RespondCreated(c, gin.H{"slug": slug})
		return
	}
	RespondOK(c, gin.H{"slug": slug})
}

// Delete removes a custom profile.
//
// DELETE /api/v1/profiles/:slug
func (h *ProfileHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

type duplicateRequest struct {
	Name string `json:"name"`
}

// Duplicate copies a profile (built-in or custom) under a new name.
//
// POST /api/v1/profiles/:slug/duplicate
func (h *ProfileHandler) Duplicate(c *gin.Context) {
	var req duplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}

	slug, err := h.store.Duplicate(c.Request.Context(), c.Param("slug"), req.Name)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, gin.H{"slug": slug})
}

// Import creates a profile from an exported JSON document in the request
// body.
//
// POST /api/v1/profiles/import
func (h *ProfileHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "could not read request body")
		return
	}

	slug, err := h.store.ImportJSON(c.Request.Context(), body)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, gin.H{"slug": slug})
}

// Export downloads a profile as its JSON interchange document.
//
// GET /api/v1/profiles/:slug/export
func (h *ProfileHandler) Export(c *gin.Context) {
	slug := c.Param("slug")
	doc, err := h.store.ExportJSON(c.Request.Context(), slug)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", slug+".json"))
	c.Data(http.StatusOK, "application/json", doc)
}

// MasterFields returns the master extraction field catalog.
//
// GET /api/v1/profiles/master-fields
func (h *ProfileHandler) MasterFields(c *gin.Context) {
	RespondOK(c, gin.H{"fields": profile.MasterFields()})
}
