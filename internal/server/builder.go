package server

import (
	"brandgen-go/internal/access"
	"brandgen-go/internal/auth"
	"brandgen-go/internal/config"
	"brandgen-go/internal/handlers/chat"
	"brandgen-go/internal/handlers/imagegen"
	mw "brandgen-go/internal/middleware"
	"brandgen-go/internal/storage"
	"brandgen-go/internal/streaming"
	"brandgen-go/internal/upstream"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Dependencies encapsulates runtime services required to build the HTTP engine.
type Dependencies struct {
	Config   config.Source
	Storage  storage.Backend
	Guard    streaming.Guard
	Verifier auth.Verifier
	Access   access.Checker
	Clients  *upstream.Manager
	// Ticker paces simulated responses; nil means wall clock.
	Ticker streaming.TickerFactory
}

// BuildEngine constructs the gin engine serving the relay API.
func BuildEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config.Current()
	if deps.Verifier == nil {
		deps.Verifier = auth.NewJWTVerifier(func() string { return deps.Config.Current().Security.JWTSecret })
	}
	if deps.Access == nil {
		deps.Access = access.AllowAll{}
	}
	if deps.Clients == nil {
		deps.Clients = upstream.NewManager()
	}
	if deps.Guard == nil {
		deps.Guard = streaming.NewMemoryGuard(0)
	}

	engine := gin.New()
	applyStandardEngineSettings(engine, cfg)
	if cfg.Security.Debug {
		registerPprof(engine)
	}
	engine.GET("/healthz", healthHandler(deps.Storage))
	engine.GET("/metrics", mw.MetricsHandler())

	root := engine.Group(cfg.Server.BasePath)
	api := root.Group("/api", protectedChain(cfg, deps)...)

	var chatOpts []chat.Option
	var imageOpts []imagegen.Option
	if deps.Ticker != nil {
		chatOpts = append(chatOpts, chat.WithTicker(deps.Ticker))
		imageOpts = append(imageOpts, imagegen.WithTicker(deps.Ticker))
	}
	RegisterChatRoutes(api.Group("/chat"), chat.New(deps.Config, deps.Storage, deps.Guard, deps.Clients, chatOpts...))
	RegisterImageGenRoutes(api.Group("/image-gen"), imagegen.New(deps.Config, deps.Storage, deps.Guard, deps.Clients, imageOpts...))

	log.WithFields(log.Fields{
		"base_path":  cfg.Server.BasePath,
		"rate_limit": cfg.RateLimit.Enabled,
		"payment":    cfg.Security.RequirePayment,
	}).Info("http engine built")
	return engine
}

// protectedChain authenticates, rate limits, then checks access.
func protectedChain(cfg *config.Config, deps Dependencies) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{mw.JWTAuth(deps.Verifier)}
	if cfg.RateLimit.Enabled {
		chain = append(chain, mw.RateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	return append(chain, mw.RequireAccess(deps.Access))
}
