package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/auth"
	"github.com/zfogg/tinyforum/backend/internal/forum"
)

// Pinger is a backing service the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP handlers for the forum API
type Handlers struct {
	forum *forum.Service
	auth  auth.ServiceInterface
	redis Pinger
}

// NewHandlers creates a new handlers instance
func NewHandlers(forumService *forum.Service, authService auth.ServiceInterface) *Handlers {
	return &Handlers{
		forum: forumService,
		auth:  authService,
	}
}

// SetRedis adds Redis to the health check.
func (h *Handlers) SetRedis(p Pinger) {
	h.redis = p
}

// Limits are the per-route rate limiters. Nil entries disable limiting.
type Limits struct {
	// Auth guards register and login, keyed by client IP.
	Auth gin.HandlerFunc
	// Write guards content creation and runs after authentication.
	Write gin.HandlerFunc
}

func passThrough(c *gin.Context) { c.Next() }

// RegisterRoutes mounts the API on api, which the caller has already
// wrapped with the shared middleware. ws is mounted at GET
// /threads/:id/ws when non-nil.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup, ws gin.HandlerFunc, limits Limits) {
	requireAuth := auth.RequireAuth(h.auth)
	optionalAuth := auth.OptionalAuth(h.auth)
	authLimit, writeLimit := limits.Auth, limits.Write
	if authLimit == nil {
		authLimit = passThrough
	}
	if writeLimit == nil {
		writeLimit = passThrough
	}

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authLimit, h.Register)
		authGroup.POST("/login", authLimit, h.Login)
		authGroup.GET("/me", requireAuth, h.Me)
	}

	threads := api.Group("/threads")
	{
		threads.GET("", h.ListThreads)
		threads.POST("", requireAuth, writeLimit, h.CreateThread)
		threads.GET("/:id", optionalAuth, h.GetThread)
		threads.GET("/:id/edit", requireAuth, h.EditThread)
		threads.PUT("/:id", requireAuth, writeLimit, h.UpdateThread)
		threads.POST("/:id/posts", requireAuth, writeLimit, h.CreatePost)
		threads.POST("/:id/star", optionalAuth, h.StarThread)
		if ws != nil {
			threads.GET("/:id/ws", optionalAuth, ws)
		}
	}

	posts := api.Group("/posts")
	{
		posts.GET("/:id/edit", requireAuth, h.EditPost)
		posts.PUT("/:id", requireAuth, writeLimit, h.UpdatePost)
		posts.GET("/:id/report", requireAuth, h.ReportForm)
		posts.POST("/:id/report", requireAuth, writeLimit, h.ReportPost)
	}

	api.GET("/users/me/starred", requireAuth, h.StarredThreads)
	api.GET("/search", h.Search)

	moderation := api.Group("/moderation", requireAuth, auth.RequireModerator())
	{
		moderation.GET("/reports", h.ListReports)
		moderation.GET("/reports/:id", h.GetReport)
		moderation.POST("/reports/:id", h.HandleReport)
	}
}
