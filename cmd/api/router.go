package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"librarium/internal/shared/middleware"
	"librarium/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupCatalogReadRoutes(v1, c)
		setupCatalogWriteRoutes(v1, c)
	}

	return router
}

// Read routes are open: impact previews and integrity reports mutate
// nothing.
func setupCatalogReadRoutes(v1 *gin.RouterGroup, c *container.Container) {
	h := c.CatalogHandler

	v1.GET("/books", h.ListBooks)
	v1.GET("/books/:id", h.GetBook)
	v1.GET("/books/:id/delete-impact", h.BookDeleteImpact)
	v1.POST("/books/:id/update-impact", h.BookUpdateImpact)

	v1.GET("/authors", h.ListAuthors)
	v1.GET("/authors/:id", h.GetAuthor)
	v1.GET("/authors/:id/delete-impact", h.AuthorDeleteImpact)

	v1.GET("/publishers", h.ListPublishers)
	v1.GET("/publishers/:id", h.GetPublisher)

	v1.GET("/series", h.ListSeries)
	v1.GET("/series/:id", h.GetSeries)

	v1.GET("/categories", h.ListCategories)
	v1.GET("/genres", h.ListGenres)
	v1.GET("/topics", h.ListTopics)
}

func setupCatalogWriteRoutes(v1 *gin.RouterGroup, c *container.Container) {
	h := c.CatalogHandler

	protected := v1.Group("")
	protected.Use(middleware.Auth(c.JWTManager))

	protected.POST("/books", h.CreateBook)
	protected.PUT("/books/:id", h.UpdateBook)
	protected.DELETE("/books/:id", h.DeleteBook)

	protected.DELETE("/authors/:id", h.DeleteAuthor)
	protected.DELETE("/publishers/:id", h.DeletePublisher)
	protected.DELETE("/series/:id", h.DeleteSeries)

	protected.GET("/maintenance/integrity", h.IntegrityCheck)
	protected.POST("/maintenance/cleanup-orphans", h.CleanupOrphans)

	protected.POST("/import", h.ImportBatch)
}

func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
		}

		dbStatus := "ok"
		if appCtx.DB == nil || appCtx.DB.Pool == nil {
			dbStatus = "disconnected"
			health["status"] = "degraded"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.DB.HealthCheck(ctx); err != nil {
				dbStatus = fmt.Sprintf("error: %v", err)
				health["status"] = "degraded"
			}
		}

		redisStatus := "ok"
		if appCtx.Cache == nil {
			redisStatus = "disconnected"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.Cache.Ping(ctx); err != nil {
				redisStatus = fmt.Sprintf("error: %v", err)
			}
		}

		health["services"] = gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
		}

		statusCode := http.StatusOK
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, health)
	}
}
