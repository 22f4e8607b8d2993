package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"librarium/internal/domains/catalog/model"
	"librarium/internal/domains/catalog/repository"
	"librarium/internal/domains/catalog/service"
	"librarium/internal/shared/response"
)

// Handler - HTTP handler for the catalog domain
type Handler struct {
	lifecycle *service.LifecycleService
	analyzer  *service.ImpactAnalyzer
	importer  *service.ImportService
	repo      repository.Repository
}

// NewHandler - Constructor with DI
func NewHandler(lifecycle *service.LifecycleService, analyzer *service.ImpactAnalyzer,
	importer *service.ImportService, repo repository.Repository) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		analyzer:  analyzer,
		importer:  importer,
		repo:      repo,
	}
}

// parseID reads a uuid path parameter, replying 400 on malformed input.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id: must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func parseCascade(c *gin.Context) bool {
	cascade, err := strconv.ParseBool(c.DefaultQuery("cascade", "false"))
	if err != nil {
		return false
	}
	return cascade
}

// ListBooks - GET /v1/books
func (h *Handler) ListBooks(c *gin.Context) {
	books, err := h.repo.ListBooks(c.Request.Context())
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, books)
}

// GetBook - GET /v1/books/:id
func (h *Handler) GetBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	book, err := h.repo.GetBook(c.Request.Context(), id)
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, book)
}

// CreateBook - POST /v1/books
func (h *Handler) CreateBook(c *gin.Context) {
	var req model.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	book, err := h.lifecycle.CreateBook(c.Request.Context(), &req)
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusCreated, book)
}

// UpdateBook - PUT /v1/books/:id?cascade=
func (h *Handler) UpdateBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req model.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	book, err := h.lifecycle.UpdateBook(c.Request.Context(), id, &req, parseCascade(c))
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, book)
}

// DeleteBook - DELETE /v1/books/:id?cascade=
func (h *Handler) DeleteBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.lifecycle.DeleteBook(c.Request.Context(), id, parseCascade(c))
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// BookDeleteImpact - GET /v1/books/:id/delete-impact
func (h *Handler) BookDeleteImpact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	report, err := h.analyzer.CheckBookDeleteImpact(c.Request.Context(), id)
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, report)
}

// BookUpdateImpact - POST /v1/books/:id/update-impact
// The body carries the proposed new state; nothing is persisted.
func (h *Handler) BookUpdateImpact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req model.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR",
			"invalid book update", err.Error())
		return
	}
	report, err := h.analyzer.CheckBookUpdateImpact(c.Request.Context(), id, &req)
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, report)
}
