// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, compression, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/designai/studio-backend/internal/auth"
	"github.com/designai/studio-backend/internal/config"
	"github.com/designai/studio-backend/internal/http/handlers"
	"github.com/designai/studio-backend/internal/http/middleware"
	"github.com/designai/studio-backend/internal/repo"
	"github.com/designai/studio-backend/internal/services"
)

const (
	maxBodyBytes       = 1 << 20
	maxPromptRunes     = 2000
	idempotencyKeySize = 200

	// send-code is unauthenticated and costs money per call, so it gets a
	// per-IP bucket on top of the per-phone throttle.
	sendCodeRPS   = 5.0 / 60
	sendCodeBurst = 5

	// Password routes are keyed by IP so a caller cannot guess codes or
	// passwords faster than this.
	authRPS   = 10.0 / 60
	authBurst = 10

	notifyRoute = "/payment/notify"
)

// Deps are the collaborators RegisterRoutes injects into services. A nil
// SMS, Payments, LLM or Auth puts the matching feature in its unconfigured
// mode.
type Deps struct {
	DB       *gorm.DB
	Verifier auth.Verifier
	SMS      services.SMSSender
	Payments services.PaymentGateway
	LLM      services.Chatter
	Auth     services.AuthAdmin
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Global rate limiter (per IP, bypass on replay, skips the gateway callback)
//  8. CORS, compression and security headers
//
// Authenticated routes add RequireUser; payment creation then validates the
// Idempotency-Key before its own per-user limiter so replays are not charged.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(serviceName(cfg)))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Supabase-Auth"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())

	// The global limiter runs before RequireUser, so it can only key by IP.
	// Gateway retries come from a few shared IPs and must not be throttled
	// alongside ordinary traffic.
	notifyPath := strings.TrimRight(cfg.APIBasePath, "/") + notifyRoute
	global := middleware.NewRateLimiter("global", cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	global.Skip = func(c *gin.Context) bool { return c.FullPath() == notifyPath }
	r.Use(global.Handler())

	r.Use(corsMiddleware(cfg.CORS)...)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(newServices(deps, cfg))

	requireUser := auth.RequireUser(deps.Verifier, func(c *gin.Context, status int, _ error, msg string) {
		handlers.Fail(c, status, handlers.ErrCodeUnauthorized, msg)
	})
	noStore := middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true})

	sendCodeLimiter := middleware.NewRateLimiter("send_code", sendCodeRPS, sendCodeBurst, middleware.KeyByIP())
	authLimiter := middleware.NewRateLimiter("auth", authRPS, authBurst, middleware.KeyByIP())
	paymentLimiter := middleware.NewRateLimiter("payment", cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Phone onboarding
		api.POST("/auth/check-phone", h.CheckPhone)
		api.POST("/auth/send-code", sendCodeLimiter.Handler(), h.SendCode)
		api.POST("/auth/register", authLimiter.Handler(), h.Register)
		api.POST("/auth/login", authLimiter.Handler(), h.Login)
		api.POST("/auth/reset-password", authLimiter.Handler(), h.ResetPassword)

		// Gateway callback, authenticated by signature
		api.POST(notifyRoute, h.PaymentNotify)

		authed := api.Group("", requireUser)
		authed.GET("/check-status", h.CheckStatus)
		authed.GET("/user/credits", noStore, h.GetCredits)
		authed.GET("/user/history", h.GetHistory)
		authed.POST("/prompt/enhance", h.EnhancePrompt)
		authed.POST("/payment/create",
			noStore,
			middleware.IdempotencyValidator(middleware.IdempotencyOptions{
				Scope:  services.ScopePaymentCreate,
				MaxLen: idempotencyKeySize,
			}, idempotencyLookup(deps.DB)),
			paymentLimiter.Handler(),
			h.CreatePayment,
		)
	}
}

// newServices builds the application services over the injected clients.
func newServices(deps Deps, cfg config.Config) handlers.Services {
	accounts := services.NewAccountService(deps.DB, deps.SMS)
	accounts.Auth = deps.Auth
	accounts.ShadowSalt = cfg.Supabase.ShadowPasswordSalt
	accounts.Interval = cfg.SMS.Interval
	if cfg.SMS.CodeTTL > 0 {
		accounts.CodeTTL = cfg.SMS.CodeTTL
	}
	return handlers.Services{
		Accounts: accounts,
		Credits:  &services.CreditService{DB: deps.DB},
		History:  &services.HistoryService{DB: deps.DB},
		Tasks:    &services.TaskService{DB: deps.DB},
		Payments: &services.PaymentService{
			DB:             deps.DB,
			Gateway:        deps.Payments,
			IdempotencyTTL: cfg.IdempotencyTTL,
		},
		Prompts: &services.PromptService{LLM: deps.LLM, MaxPromptRunes: maxPromptRunes},
	}
}

// idempotencyLookup reports whether a live record exists for the key. The
// validator treats lookup errors as a miss; the payment service consults the
// same table again before creating an order.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return rec != nil, nil
	}
}

// corsMiddleware returns the CORS chain. With no allowlist every origin is
// accepted without credentials; otherwise only listed origins are echoed.
func corsMiddleware(opts config.CORSConfig) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", middleware.HeaderIdempotencyReplayed, "ETag", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(opts.AllowedOrigins) == 0 {
		base.AllowAllOrigins = true
		// ACAO on every response, including same-origin calls without an
		// Origin header.
		force := func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		}
		return []gin.HandlerFunc{force, cors.New(base)}
	}

	base.AllowOrigins = opts.AllowedOrigins
	base.AllowCredentials = true
	return []gin.HandlerFunc{cors.New(base)}
}

func serviceName(cfg config.Config) string {
	if cfg.OTEL.ServiceName != "" {
		return cfg.OTEL.ServiceName
	}
	return "studio-backend"
}

// limitBody caps the request body at maxBytes using http.MaxBytesReader.
// Requests exceeding the cap cause downstream body reads to error.
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
