package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/biopulse/biopulse/internal/config"
	"github.com/biopulse/biopulse/internal/domain/account"
	"github.com/biopulse/biopulse/internal/domain/biomarker"
	"github.com/biopulse/biopulse/internal/domain/document"
	"github.com/biopulse/biopulse/internal/domain/ingest"
	"github.com/biopulse/biopulse/internal/domain/profile"
	"github.com/biopulse/biopulse/internal/platform/aiparse"
	"github.com/biopulse/biopulse/internal/platform/blobstore"
	"github.com/biopulse/biopulse/internal/platform/db"
	"github.com/biopulse/biopulse/internal/platform/middleware"
	"github.com/biopulse/biopulse/internal/platform/telemetry"
)

const downloadURLTTL = 15 * time.Minute

func main() {
	rootCmd := &cobra.Command{
		Use:   "biopulse-server",
		Short: "Lab report ingestion API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(catalogCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the biomarker catalog",
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Reload the biomarker catalog from the database and print its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			catalog := biomarker.NewCatalog(biomarker.NewRepoPG(pool))
			if err := catalog.Refresh(ctx); err != nil {
				return err
			}
			fmt.Printf("Catalog loaded: %d biomarker(s).\n", catalog.Size())
			return nil
		},
	}
	cmd.AddCommand(refreshCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Telemetry
	tp := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{ServiceName: "biopulse-server"})
	defer tp.Shutdown(ctx)

	// Repositories
	accountRepo := account.NewRepoPG(pool)
	profileRepo := profile.NewRepoPG(pool)
	biomarkerRepo := biomarker.NewRepoPG(pool)
	documentRepo := document.NewRepoPG(pool)
	readingRepo := document.NewReadingRepoPG(pool)

	// Biomarker catalog, loaded once at startup. catalog refresh (the
	// subcommand) or a restart picks up new entries.
	catalog := biomarker.NewCatalog(biomarkerRepo)
	if err := catalog.Refresh(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load biomarker catalog")
	}
	tp.HealthMetrics().SetCatalogSize(int64(catalog.Size()))
	logger.Info().Int("entries", catalog.Size()).Msg("biomarker catalog loaded")

	// AI parse provider
	parser, err := buildParser(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure parse provider")
	}
	logger.Info().Str("provider", parser.Name()).Msg("parse provider configured")

	// Blob storage
	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure blob storage")
	}
	signer := blobstore.NewURLSigner([]byte(cfg.URLSigningKey), downloadURLTTL, cfg.PublicBaseURL)

	// Services
	accountSvc := account.NewService(accountRepo)
	profileSvc := profile.NewService(profileRepo)
	ingestSvc := ingest.NewService(accountSvc, profileSvc, documentRepo, readingRepo, catalog, parser, blobs, logger, tp)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(tp.TracingMiddleware())
	e.Use(tp.MetricsMiddleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID", "X-External-ID", "X-Username"},
	}))

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(account.Middleware(accountSvc))

	// Domain handlers
	account.NewHandler(accountSvc).RegisterRoutes(apiV1)
	profile.NewHandler(profileSvc).RegisterRoutes(apiV1)
	document.NewHandler(documentRepo, readingRepo, profileSvc, signer).RegisterRoutes(apiV1)
	biomarker.NewHandler(catalog).RegisterRoutes(apiV1)
	ingest.NewHandler(ingestSvc, documentRepo, logger).RegisterRoutes(apiV1)

	// Signed blob downloads
	e.GET("/files", blobstore.DownloadHandler(signer, blobs))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", tp.PrometheusHandler())

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// buildParser assembles the document parse provider from config. The
// "ab" mode splits traffic between Anthropic and OpenAI and needs
// both keys.
func buildParser(cfg *config.Config, logger zerolog.Logger) (aiparse.Provider, error) {
	anthropic := func() *aiparse.AnthropicProvider {
		return aiparse.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}
	openai := func() *aiparse.OpenAIProvider {
		return aiparse.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	switch cfg.AIProvider {
	case "anthropic":
		if cfg.OpenAIAPIKey != "" {
			return &aiparse.FallbackProvider{Primary: anthropic(), Secondary: openai(), Logger: logger}, nil
		}
		return anthropic(), nil
	case "openai":
		if cfg.AnthropicAPIKey != "" {
			return &aiparse.FallbackProvider{Primary: openai(), Secondary: anthropic(), Logger: logger}, nil
		}
		return openai(), nil
	case "ab":
		return aiparse.NewABProvider(anthropic(), openai(), logger), nil
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.StorageBackend {
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "gcs":
		return blobstore.NewGCSStore(ctx, cfg.StorageBucket)
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}
