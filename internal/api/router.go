package api

import (
	"strconv"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vitalog/vitalog-api/internal/api/handler"
	"github.com/vitalog/vitalog-api/internal/api/middleware"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

// Dependencies is everything the HTTP layer needs, assembled by cmd/server.
type Dependencies struct {
	// Prefix is prepended to every route except /metrics, e.g. "/api/v1".
	Prefix      string
	CORSOrigins []string
	// BodyLimit caps request bodies in bytes; zero disables the cap.
	BodyLimit int64

	AuthService    ports.AuthService
	UploadService  ports.UploadService
	Tokens         ports.TokenIssuer
	Health         *handler.HealthHandler
	UploadLimits   handler.UploadLimits
	RateLimitStore echomiddleware.RateLimiterStore

	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(middleware.Metrics())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: corsOrigins(deps.CORSOrigins),
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
	}))
	if deps.BodyLimit > 0 {
		e.Use(echomiddleware.BodyLimit(strconv.FormatInt(deps.BodyLimit, 10)))
	}
	if deps.RateLimitStore != nil {
		e.Use(middleware.RateLimit(deps.RateLimitStore))
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group(deps.Prefix)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.GET("/me", authHandler.Me, middleware.Auth(deps.Tokens))

	// --- Health probes (no auth required) ---
	if deps.Health != nil {
		api.GET("/health", deps.Health.Health)
		api.GET("/health/liveness", deps.Health.Liveness)   // is the process alive?
		api.GET("/health/readiness", deps.Health.Readiness) // are dependencies up?
	}

	// --- Upload routes ---
	uploadHandler := handler.NewUploadHandler(deps.UploadService, deps.UploadLimits)
	upload := api.Group("/upload", middleware.OptionalAuth(deps.Tokens))
	upload.POST("", uploadHandler.Upload)
	upload.POST("/multiple", uploadHandler.UploadMultiple)
	upload.POST("/presigned", uploadHandler.Presign)
	upload.POST("/confirm", uploadHandler.Confirm)
	upload.GET("", uploadHandler.List)
	upload.GET("/:id", uploadHandler.Get)
	upload.GET("/:id/download", uploadHandler.Download)
	upload.DELETE("/:id", uploadHandler.Delete)

	return e
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
