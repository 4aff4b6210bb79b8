// Package api exposes assets, lazy assets and progresses over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stemyke/node-backend-sub000/asset"
	"github.com/stemyke/node-backend-sub000/ctxutil"
	"github.com/stemyke/node-backend-sub000/lazyasset"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/metrics"
	"github.com/stemyke/node-backend-sub000/net/resp"
	"github.com/stemyke/node-backend-sub000/notify"
	"github.com/stemyke/node-backend-sub000/progress"
	"github.com/stemyke/node-backend-sub000/queue"
)

// DefaultMaxUploadSize bounds request bodies of uploads.
const DefaultMaxUploadSize = 64 << 20

// Services are the dependencies of the handlers. Jobs, Socket and Health are
// optional. Without Jobs any job name is accepted for new lazy assets.
type Services struct {
	Assets        *asset.Store
	Lazy          *lazyasset.Store
	Progresses    *progress.Store
	Jobs          *queue.Registry
	Socket        *notify.Handler
	Health        func(ctx context.Context) error
	MaxUploadSize int64
}

type handler struct {
	svc      *Services
	resolver *lazyasset.Resolver
}

// NewRouter builds the gin engine serving every route under /api plus
// /metrics and /health.
func NewRouter(mode string, svc *Services) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	if svc.MaxUploadSize <= 0 {
		svc.MaxUploadSize = DefaultMaxUploadSize
	}
	h := &handler{svc: svc, resolver: lazyasset.NewResolver(svc.Assets, svc.Lazy)}

	r := gin.New()
	r.Use(gin.Recovery(), traceMiddleware(), loggerMiddleware(), metrics.GinMiddleware())

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	g := r.Group("/api")
	g.POST("/assets", h.uploadAsset)
	g.GET("/assets/image/:id", h.getImage)
	g.GET("/assets/:id", h.getAsset)
	g.GET("/assets/:id/meta", h.getAssetMeta)
	g.DELETE("/assets/:id", h.deleteAsset)

	g.POST("/lazy-assets", h.createLazyAsset)
	g.GET("/lazy-assets/:id", h.getLazyAsset)
	g.GET("/lazy-assets/:id/meta", h.getLazyAssetMeta)
	g.POST("/lazy-assets/:id/restart", h.restartLazyAsset)
	g.DELETE("/lazy-assets/:id", h.deleteLazyAsset)

	g.GET("/progresses/:id", h.getProgress)

	if svc.Socket != nil {
		g.GET("/ws", svc.Socket.HandleConnection)
	}
	return r
}

func (h *handler) health(c *gin.Context) {
	if h.svc.Health != nil {
		if err := h.svc.Health(c.Request.Context()); err != nil {
			logger.Error(c.Request.Context(), "health check failed", "error", err)
			resp.Fail(c.Writer, &resp.Exception{Status: http.StatusServiceUnavailable, Message: "unhealthy"})
			return
		}
	}
	resp.Success(c.Writer, map[string]string{"status": "healthy"})
}

// traceMiddleware takes the trace id from the request header or creates one.
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(ctxutil.TraceHeader); id != "" {
			ctx = ctxutil.SetTraceID(ctx, id)
		}
		ctx, id := ctxutil.EnsureTraceID(ctx)
		c.Request = c.Request.WithContext(ctx)
		c.Header(ctxutil.TraceHeader, id)
		c.Next()
	}
}

func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
