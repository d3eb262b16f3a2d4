// Package server assembles the gin engine: middleware chain, route table and
// the operational endpoints.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/revlinehq/revline/internal/authn"
	"github.com/revlinehq/revline/internal/authn/ratelimit"
	"github.com/revlinehq/revline/internal/shop"
)

const apiPrefix = "/api/v1"

// Config carries the transport-level settings.
type Config struct {
	CORSOrigins []string
	CSPMode     CSPMode
}

// Deps are the constructed collaborators the router wires together. Every
// dependency is built once in cmd and passed here by reference; nothing in
// the request path reaches for process-global state.
type Deps struct {
	Auth           *authn.Handler
	Shop           *shop.Handler
	AuthLimiter    *ratelimit.Limiter
	RefreshLimiter *ratelimit.Limiter
	Metrics        *Metrics
	Log            zerolog.Logger
}

// New builds the router.
func New(cfg Config, deps Deps) *gin.Engine {
	engine := gin.New()

	engine.Use(
		Recovery(deps.Log),
		RequestLogger(deps.Log),
		CORS(cfg.CORSOrigins),
		SecurityHeaders(BuildCSP(cfg.CSPMode)),
	)
	if deps.Metrics != nil {
		engine.Use(deps.Metrics.Middleware())
		engine.GET("/metrics", deps.Metrics.Handler())
	}

	api := engine.Group(apiPrefix)
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Every auth endpoint passes through a rate limiter first. The refresh
	// endpoint gets dual-scope limiting keyed by IP and by the subject of the
	// presented refresh token.
	auth := api.Group("/auth")
	authLimited := deps.AuthLimiter.Middleware(nil)
	auth.POST("/register", authLimited, deps.Auth.Register)
	auth.POST("/login", authLimited, deps.Auth.Login)
	auth.POST("/refresh", deps.RefreshLimiter.Middleware(deps.Auth.RefreshSubject), deps.Auth.Refresh)
	auth.POST("/logout", authLimited, deps.Auth.Logout)

	guarded := authn.RequireAccess(deps.Auth.Tokens())
	auth.GET("/me", guarded, deps.Auth.Me)

	customers := api.Group("/customers", guarded)
	customers.GET("", deps.Shop.ListCustomers)
	customers.POST("", deps.Shop.CreateCustomer)

	vehicles := api.Group("/vehicles", guarded)
	vehicles.GET("", deps.Shop.ListVehicles)
	vehicles.GET("/by", deps.Shop.FindVehicles)
	vehicles.POST("", deps.Shop.CreateVehicle)

	api.GET("/ros/active", guarded, deps.Shop.ActiveROs)
	api.GET("/search", guarded, deps.Shop.Search)
	api.GET("/stats", guarded, deps.Shop.Stats)
	api.GET("/parts", guarded, deps.Shop.ListParts)

	meta := api.Group("/meta", guarded)
	meta.GET("/ro-statuses", deps.Shop.ROStatuses)
	meta.GET("/service-categories", deps.Shop.ServiceCategories)

	return engine
}
