package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"librarium/internal/domains/catalog/model"
	"librarium/internal/shared/response"
)

// IntegrityCheck - GET /v1/maintenance/integrity
// Read-only scan of the whole catalog against the relationship rules.
func (h *Handler) IntegrityCheck(c *gin.Context) {
	report, err := h.analyzer.IntegrityCheck(c.Request.Context())
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, report)
}

// CleanupOrphans - POST /v1/maintenance/cleanup-orphans
func (h *Handler) CleanupOrphans(c *gin.Context) {
	result, err := h.lifecycle.CleanupOrphans(c.Request.Context())
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, result)
}

// ImportBatch - POST /v1/import
func (h *Handler) ImportBatch(c *gin.Context) {
	var batch model.ImportBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		response.BadRequest(c, "invalid import payload")
		return
	}
	result, err := h.importer.ImportBatch(c.Request.Context(), &batch)
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, result)
}
