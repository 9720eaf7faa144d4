// Package api assembles the HTTP surface: routing, middleware and handlers.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ls5986/habexa2.0-sub002/internal/api/handler"
	"github.com/ls5986/habexa2.0-sub002/internal/api/middleware"
	"github.com/ls5986/habexa2.0-sub002/internal/config"
	"github.com/ls5986/habexa2.0-sub002/internal/logger"
)

// Handlers groups the endpoint implementations the router mounts.
type Handlers struct {
	Upload   *handler.UploadHandler
	Job      *handler.JobHandler
	Product  *handler.ProductHandler
	Supplier *handler.SupplierHandler
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(cfg *config.Config, log *logger.Logger, h Handlers) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.Server.CORS))

	router.GET("/health", handler.Health)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireUser())
	{
		v1.POST("/catalogs", h.Upload.Upload)
		v1.POST("/catalogs/preview", h.Upload.Preview)

		v1.GET("/jobs", h.Job.List)
		v1.GET("/jobs/:id", h.Job.Get)

		v1.GET("/products", h.Product.List)
		v1.PATCH("/products/:id/status", h.Product.UpdateStatus)

		v1.POST("/suppliers", h.Supplier.Create)
		v1.GET("/suppliers", h.Supplier.List)
	}

	return router
}
