package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baseplate/console/internal/api/handlers"
	"github.com/baseplate/console/internal/api/middleware"
)

type Router struct {
	engine         *gin.Engine
	authMiddleware *middleware.AuthMiddleware
	authHandler    *handlers.AuthHandler
	collections    []*handlers.CollectionHandler
}

func NewRouter(
	tokens middleware.TokenValidator,
	authHandler *handlers.AuthHandler,
	collections ...*handlers.CollectionHandler,
) *Router {
	return &Router{
		authMiddleware: middleware.NewAuthMiddleware(tokens),
		authHandler:    authHandler,
		collections:    collections,
	}
}

func (r *Router) Setup(mode string) *gin.Engine {
	gin.SetMode(mode)
	r.engine = gin.New()
	r.engine.Use(gin.Recovery())
	r.engine.Use(gin.Logger())
	r.engine.Use(middleware.AuditMiddleware())

	r.setupRoutes()
	return r.engine
}

func (r *Router) setupRoutes() {
	api := r.engine.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth routes (public)
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/login", r.authHandler.Login)
		authRoutes.GET("/me", r.authMiddleware.Authenticate(), r.authHandler.Me)
	}

	// Collections: reads are public, writes need a bearer token.
	requireAuth := r.authMiddleware.Authenticate()
	for _, h := range r.collections {
		endpoint := h.Schema().Endpoint()
		r.engine.GET(endpoint, h.List)
		r.engine.POST(endpoint, requireAuth, h.Create)
		r.engine.PUT(endpoint+"/:id", requireAuth, h.Update)
		r.engine.DELETE(endpoint+"/:id", requireAuth, h.Delete)
	}
}
