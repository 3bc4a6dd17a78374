package server

import (
	"net/http"
	pp "net/http/pprof"

	"brandgen-go/internal/config"
	mw "brandgen-go/internal/middleware"
	"brandgen-go/internal/storage"

	"github.com/gin-gonic/gin"
)

// applyStandardEngineSettings applies common Gin settings and middlewares.
func applyStandardEngineSettings(engine *gin.Engine, cfg *config.Config) {
	if !cfg.Security.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	_ = engine.SetTrustedProxies([]string{})

	engine.Use(mw.RequestID(), mw.Recovery(), mw.CORS(), mw.Metrics())
	if cfg.Server.RequestLog {
		engine.Use(mw.RequestLogger())
	}
}

func healthHandler(backend storage.Backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		if backend == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": "none"})
			return
		}
		label := storage.BackendLabel(backend)
		if err := backend.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "storage": label, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": label})
	}
}

func registerPprof(r *gin.Engine) {
	ppGroup := r.Group("/debug/pprof")
	ppGroup.GET("/", gin.WrapF(pp.Index))
	ppGroup.GET("/cmdline", gin.WrapF(pp.Cmdline))
	ppGroup.GET("/profile", gin.WrapF(pp.Profile))
	ppGroup.POST("/symbol", gin.WrapF(pp.Symbol))
	ppGroup.GET("/symbol", gin.WrapF(pp.Symbol))
	ppGroup.GET("/trace", gin.WrapF(pp.Trace))
	ppGroup.GET("/allocs", gin.WrapF(pp.Handler("allocs").ServeHTTP))
	ppGroup.GET("/goroutine", gin.WrapF(pp.Handler("goroutine").ServeHTTP))
	ppGroup.GET("/heap", gin.WrapF(pp.Handler("heap").ServeHTTP))
}
