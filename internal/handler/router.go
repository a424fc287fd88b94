package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"redemption-guard/internal/handler/api"
	"redemption-guard/internal/handler/middleware"
	"redemption-guard/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// NewRouter mounts the operational endpoints. The core is driven in-process
// and by the CLI; there is no public API surface.
func NewRouter(engine *gin.Engine, cfg config.Config, healthHandler *api.HealthHandler, registry *prometheus.Registry) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, healthHandler, registry)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, healthHandler *api.HealthHandler, registry *prometheus.Registry) {
	metrics := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})

	addRoutes(&engine.RouterGroup, []route{
		{Method: http.MethodGet, Path: "/healthz", Handler: healthHandler.Check},
		{Method: http.MethodGet, Path: "/metrics", Handler: gin.WrapH(metrics)},
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, r.Handler)
		case http.MethodPost:
			g.POST(r.Path, r.Handler)
		default:
			g.Any(r.Path, r.Handler)
		}
	}
}
