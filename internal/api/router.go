package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minhchien137/MachineStatusUpdate/config"
	"github.com/minhchien137/MachineStatusUpdate/internal/mw"
	"github.com/minhchien137/MachineStatusUpdate/internal/store"
	"github.com/minhchien137/MachineStatusUpdate/internal/upload"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg *config.Config, limiter *mw.SubmitLimiter) *gin.Engine {
	r := gin.Default()
	r.Use(mw.Metrics())

	images := upload.NewImageStore(cfg.Uploads)
	handler := NewHandler(s, images, cfg.Reports)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/uploads", filepath.Join(images.RootDir(), "uploads"))

	handler.Routes(r.Group("/api"), limiter)

	return r
}

// Routes registers the API endpoints on g.
func (h *Handler) Routes(g *gin.RouterGroup, limiter *mw.SubmitLimiter) {
	g.POST("/status", mw.RateLimit(limiter), h.SubmitStatus)
	g.POST("/status/validate-code", h.ValidateCode)
	g.GET("/status", h.ListStatus)
	g.GET("/status/export", h.ExportStatus)

	g.GET("/downtime/detail", h.DowntimeDetail)
	g.GET("/downtime/summary", h.DowntimeSummary)
	g.GET("/downtime/detail/export", h.ExportDowntimeDetail)
	g.GET("/downtime/summary/export", h.ExportDowntimeSummary)
}
