package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/vsconsole/internal/api/handlers"
	"github.com/your-org/vsconsole/internal/api/ws"
	"github.com/your-org/vsconsole/internal/auth"
	"github.com/your-org/vsconsole/internal/backend"
	"github.com/your-org/vsconsole/internal/incidents"
	"github.com/your-org/vsconsole/internal/routes"
	"github.com/your-org/vsconsole/internal/streams"
)

type RouterConfig struct {
	APIKey    string
	Backend   *backend.Client
	Registry  *streams.Registry
	Incidents *incidents.Service
	Evidence  handlers.EvidenceSource
	Audit     handlers.Auditor
	Routes    *routes.Table
	Hub       *ws.Hub
	// Checks are pinged by /readyz, keyed by dependency name.
	Checks map[string]handlers.Pinger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Routes == nil {
		cfg.Routes = routes.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks, cfg.Routes, cfg.Audit)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	// Jobs & search
	jobH := handlers.NewJobHandler(cfg.Backend, cfg.Audit)
	v1.GET("/jobs", jobH.List)
	v1.GET("/jobs/:id", jobH.Get)
	v1.POST("/search/text", jobH.SearchText)
	v1.POST("/search/image", jobH.SearchImage)
	v1.POST("/uploads", jobH.Upload)

	// Cameras & streams
	camH := handlers.NewCameraHandler(cfg.Backend.Cameras, cfg.Registry, cfg.Audit)
	v1.GET("/cameras", camH.List)
	v1.GET("/cameras/:id", camH.Get)
	v1.POST("/cameras", camH.Create)
	v1.PUT("/cameras/:id", camH.Update)
	v1.DELETE("/cameras/:id", camH.Delete)
	v1.POST("/cameras/:id/stream/start", camH.StartStream)
	v1.POST("/cameras/:id/stream/stop", camH.StopStream)
	v1.GET("/streams", camH.Streams)
	v1.POST("/streams/refresh", camH.RefreshStreams)
	v1.GET("/streams/:jobId/status", camH.StreamStatus)

	// Violence detection
	vioH := handlers.NewViolenceHandler(cfg.Backend.Violence, cfg.Incidents, cfg.Evidence, cfg.Audit)
	v1.GET("/violence/cameras", vioH.ListCameras)
	v1.POST("/violence/cameras", vioH.RegisterCamera)
	v1.GET("/violence/cameras/:id", vioH.GetCamera)
	v1.PATCH("/violence/cameras/:id", vioH.UpdateCamera)
	v1.DELETE("/violence/cameras/:id", vioH.DeleteCamera)
	v1.POST("/violence/cameras/:id/start", vioH.StartDetection)
	v1.POST("/violence/cameras/:id/stop", vioH.StopDetection)

	v1.GET("/incidents", vioH.ListIncidents)
	v1.DELETE("/incidents", vioH.DeleteIncidentRange)
	v1.POST("/incidents/search-clip", vioH.SearchFromClip)
	v1.GET("/incidents/:id", vioH.GetIncident)
	v1.PATCH("/incidents/:id/review", vioH.ReviewIncident)
	v1.DELETE("/incidents/:id", vioH.DeleteIncident)
	v1.GET("/evidence", vioH.Evidence)

	// Console
	v1.GET("/routes/resolve", systemH.ResolveRoute)
	v1.GET("/audit", systemH.Audit)

	return r
}
