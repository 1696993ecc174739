package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/domain/interview"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/platform/auth"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/platform/db"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/platform/events"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/platform/middleware"
	"github.com/hakimbdev/TeleMedicineAIHelper2-sub000/internal/platform/validation"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "telehealth",
		Short:        "Adaptive symptom interview and triage service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(kbCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(interviewCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the interview API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger
	cfg := a.cfg

	ctx := context.Background()
	table, err := a.knowledgeTable(ctx)
	if err != nil {
		return err
	}
	reasoner, err := a.reasoner(ctx, table)
	if err != nil {
		return err
	}

	svc := interview.NewService(
		interview.NewMemoryStore(cfg.InterviewTTL),
		reasoner,
		a.extractor(table),
		a.limits(),
		logger,
	)
	if cfg.NATSURL != "" {
		pub, err := events.Connect(ctx, cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close event publisher")
			}
		}()
		svc.SetPublisher(pub)
	}

	if cfg.DatabaseURL != "" {
		if _, err := a.database(ctx); err != nil {
			return err
		}
	}

	e := newServer(a, svc)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance with the global middleware chain and
// every route registered.
func newServer(a *app, svc *interview.Service) *echo.Echo {
	cfg, logger := a.cfg, a.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))

	jwtCfg := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		Secret:   []byte(cfg.AuthJWTSecret),
		Skipper:  auth.AuthSkipper,
	}
	if cfg.IsDev() {
		logger.Warn().Msg("development auth enabled, unauthenticated requests act as " + auth.DevSubject)
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool))
	}

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	interview.NewHandler(svc).RegisterRoutes(apiV1)
	return e
}
