package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"librarium/internal/domains/catalog/model"
	"librarium/internal/shared/response"
)

// ListAuthors - GET /v1/authors
func (h *Handler) ListAuthors(c *gin.Context) {
	authors, err := h.repo.ListAuthors(c.Request.Context())
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, authors)
}

// GetAuthor - GET /v1/authors/:id
func (h *Handler) GetAuthor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	author, err := h.repo.GetAuthor(c.Request.Context(), id)
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, author)
}

// DeleteAuthor - DELETE /v1/authors/:id
// Never cascades: blocked while any book or series still needs the author.
func (h *Handler) DeleteAuthor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.lifecycle.DeleteAuthor(c.Request.Context(), id); model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// AuthorDeleteImpact - GET /v1/authors/:id/delete-impact
func (h *Handler) AuthorDeleteImpact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	report, err := h.analyzer.CheckAuthorDeleteImpact(c.Request.Context(), id)
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, report)
}

// ListPublishers - GET /v1/publishers
func (h *Handler) ListPublishers(c *gin.Context) {
	publishers, err := h.repo.ListPublishers(c.Request.Context())
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, publishers)
}

// GetPublisher - GET /v1/publishers/:id
func (h *Handler) GetPublisher(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	publisher, err := h.repo.GetPublisher(c.Request.Context(), id)
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, publisher)
}

// DeletePublisher - DELETE /v1/publishers/:id
func (h *Handler) DeletePublisher(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.lifecycle.DeletePublisher(c.Request.Context(), id); model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// ListSeries - GET /v1/series
func (h *Handler) ListSeries(c *gin.Context) {
	series, err := h.repo.ListSeries(c.Request.Context())
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, series)
}

// GetSeries - GET /v1/series/:id
func (h *Handler) GetSeries(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	series, err := h.repo.GetSeries(c.Request.Context(), id)
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, series)
}

// DeleteSeries - DELETE /v1/series/:id
func (h *Handler) DeleteSeries(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.lifecycle.DeleteSeries(c.Request.Context(), id); model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// ListCategories - GET /v1/categories
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.repo.ListCategories(c.Request.Context())
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, categories)
}

// ListGenres - GET /v1/genres
func (h *Handler) ListGenres(c *gin.Context) {
	genres, err := h.repo.ListGenres(c.Request.Context())
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, genres)
}

// ListTopics - GET /v1/topics
func (h *Handler) ListTopics(c *gin.Context) {
	topics, err := h.repo.ListTopics(c.Request.Context())
	if model.HandleCatalogError(c, err) {
		return
	}
	response.Success(c, http.StatusOK, topics)
}
