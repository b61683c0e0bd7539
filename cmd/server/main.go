// Command server runs the studio HTTP API.
//
// Startup order: config (fail fast on missing credentials), logging, tracing,
// database, upstream clients, router. SIGINT/SIGTERM trigger a graceful
// shutdown bounded by a 10s deadline.
//
//	@title						Studio Backend API
//	@version					1.0
//	@description				Phone onboarding, credits, payments and prompt enhancement for the design studio.
//	@BasePath					/api
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/designai/studio-backend/docs"
	"github.com/designai/studio-backend/internal/auth"
	"github.com/designai/studio-backend/internal/config"
	httpapi "github.com/designai/studio-backend/internal/http"
	"github.com/designai/studio-backend/internal/llm"
	"github.com/designai/studio-backend/internal/observability"
	"github.com/designai/studio-backend/internal/payment"
	"github.com/designai/studio-backend/internal/repo"
	"github.com/designai/studio-backend/internal/sms"
	"github.com/designai/studio-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.Open(repo.Options{
		Driver:      cfg.DBDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.DBPath,
		Tracing:     cfg.OTEL.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("database handle")
	}

	hc := &http.Client{Timeout: cfg.HTTPClientTimeout}
	deps := httpapi.Deps{
		DB: db,
		Verifier: auth.NewSupabaseVerifier(auth.SupabaseConfig{
			URL:       cfg.Supabase.URL,
			AnonKey:   cfg.Supabase.AnonKey,
			JWTSecret: cfg.Supabase.JWTSecret,
		}, hc),
		Auth: auth.NewAdminClient(auth.AdminConfig{
			URL:            cfg.Supabase.URL,
			AnonKey:        cfg.Supabase.AnonKey,
			ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
		}, hc),
		Payments: payment.NewGateway(payment.Config{
			AppID:     cfg.Payment.AppID,
			AppSecret: cfg.Payment.AppSecret,
			APIURL:    cfg.Payment.APIURL,
			NotifyURL: cfg.Payment.NotifyURL,
			ReturnURL: cfg.Payment.ReturnURL,
		}, hc),
		LLM: llm.NewClient(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}),
	}
	if cfg.SMS.Enabled() {
		deps.SMS = sms.NewClient(cfg.SMS.User, cfg.SMS.Pass,
			sms.WithBaseURL(cfg.SMS.BaseURL),
			sms.WithHTTPClient(hc),
		)
	} else {
		log.Warn().Msg("SMSBAO_USER not set: verification codes are logged, not sent")
	}
	if cfg.Supabase.ShadowPasswordSalt == "" {
		log.Warn().Msg("SHADOW_PASSWORD_SALT not set: register, login and reset-password answer 503")
	}

	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	r := gin.New()
	r.ContextWithFallback = true
	httpapi.RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go sweepExpired(ctx, db, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Str("base_path", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if err := sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("db close")
	}
	log.Info().Msg("bye")
}
