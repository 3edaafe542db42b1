// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/config"
	"github.com/tbourn/go-vehicle-backend/internal/http/handlers"
	"github.com/tbourn/go-vehicle-backend/internal/http/middleware"
	"github.com/tbourn/go-vehicle-backend/internal/mail"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
	"github.com/tbourn/go-vehicle-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter + gzip
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, lg zerolog.Logger, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (customer emails, phone numbers,
	//    policy numbers are PII here)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (2 MiB: claim payloads carry document lists)
	//    and gzip for the list-heavy read endpoints.
	r.Use(limitBody(2 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		// Claim submission is the only idempotency-aware write, so the
		// lookup consults its scope regardless of the route template.
		func(ctx context.Context, userID, _, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, handlers.ClaimIdemScope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← db/config/mailer
	var mailer mail.Mailer
	if cfg.SMTP.Enabled {
		mailer = &mail.SMTPMailer{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}
	} else {
		mailer = &mail.LogMailer{Log: lg}
	}

	identity := &services.IdentityService{BcryptCost: cfg.BcryptCost}
	claimSvc := &services.ClaimService{
		DB:        db,
		Identity:  identity,
		Mailer:    mailer,
		Log:       lg,
		TxTimeout: cfg.TxTimeout,
	}
	inspSvc := &services.InspectionService{
		DB:        db,
		Identity:  identity,
		Mailer:    mailer,
		Log:       lg,
		MediaDir:  cfg.MediaDir,
		TxTimeout: cfg.TxTimeout,
	}
	chkSvc := &services.ChecklistService{DB: db, TxTimeout: cfg.TxTimeout}
	pkgSvc := &services.PackageService{DB: db}
	notifSvc := &services.NotificationService{DB: db}

	h := handlers.New(claimSvc, inspSvc, chkSvc, pkgSvc, notifSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Claims
		api.POST("/claims", h.CreateClaim)
		api.GET("/claims", h.ListClaims)
		api.GET("/claims/stats", h.ClaimStats)
		api.GET("/claims/mine", h.ListMyClaims)
		api.POST("/claims/walk-in", h.CreateWalkInClaim)
		api.GET("/claims/:id", h.GetClaim)
		api.GET("/claims/:id/events", h.ClaimEvents)
		api.PUT("/claims/:id/status", h.UpdateClaimStatus)
		api.PUT("/claims/:id/pdf", h.AttachClaimPDF)

		// PDI inspections
		api.GET("/pdi/structure", h.ChecklistStructure)
		api.PUT("/pdi/structure/reorder", h.ReorderChecklist)
		api.GET("/pdi/leakage-items", h.LeakageItems)
		api.POST("/pdi/inspections", h.CreateInspection)
		api.GET("/pdi/inspections", h.ListInspections)
		api.GET("/pdi/inspections/stats", h.InspectionStats)
		api.GET("/pdi/inspections/mine", h.ListMyInspections)
		api.GET("/pdi/inspections/:id", h.GetInspection)

		// Checklist administration
		api.POST("/pdi/sections", h.CreateSection)
		api.PUT("/pdi/sections/:id", h.RenameSection)
		api.DELETE("/pdi/sections/:id", h.DeleteSection)
		api.POST("/pdi/items", h.CreateItem)
		api.PUT("/pdi/items/:id", h.RenameItem)
		api.DELETE("/pdi/items/:id", h.DeleteItem)
		api.POST("/pdi/leakage-items", h.CreateLeakage)
		api.PUT("/pdi/leakage-items/:id", h.RenameLeakage)
		api.DELETE("/pdi/leakage-items/:id", h.DeleteLeakage)

		// Packages
		api.GET("/packages/mine", h.ListMyPackages)
		api.POST("/packages", h.GrantPackage)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.PUT("/notifications/:id/read", h.MarkNotificationRead)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
