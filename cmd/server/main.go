package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/engimpact/dashboard/internal/adapters"
	"github.com/engimpact/dashboard/internal/cache"
	"github.com/engimpact/dashboard/internal/config"
	"github.com/engimpact/dashboard/internal/errors"
	"github.com/engimpact/dashboard/internal/insights"
	"github.com/engimpact/dashboard/internal/monitoring"
	"github.com/engimpact/dashboard/internal/types"
)

const version = "1.0.0"

func main() {
	// Optional .env for local development; environment wins in prod
	_ = godotenv.Load()

	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.MustLoad()
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize monitoring system
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	// Create the fetch collaborator and the insights analyzer
	githubAdapter := adapters.NewGitHubAdapter(
		cfg.GitHub.Token,
		cfg.GitHub.MaxPRsPerRepo,
		cfg.GitHub.RequestsPerSecond,
		appMetrics,
	)
	analyzer := insights.NewAnalyzer(githubAdapter, cfg.Insights.Thresholds())

	// Insights responses are cached per canonical repos+days key
	appCache := cache.NewCache(cfg.Cache.TTL)

	r := setupRouter(cfg, analyzer, appCache, appMetrics, appLogger)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	githubAdapter.Close()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// setupRouter wires the middleware chain and routes. Split out of main
// so handler tests can build the full router.
func setupRouter(cfg *config.Config, analyzer *insights.Analyzer, appCache *cache.Cache, appMetrics *monitoring.Metrics, appLogger *monitoring.Logger) *gin.Engine {
	r := gin.New()

	// CORS so the dashboard frontend on another port can call us
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())
	r.Use(appCache.Middleware(appMetrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   version,
		})
	})

	// Metrics endpoint
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, appMetrics.GetStats())
	})

	// Cache stats endpoint
	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, appCache.Stats())
	})

	r.POST("/insights", insightsHandler(cfg, analyzer, appLogger))

	return r
}

// insightsHandler computes the aggregate insights for the requested
// repositories over the lookback window.
func insightsHandler(cfg *config.Config, analyzer *insights.Analyzer, appLogger *monitoring.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Server.RequestTimeout)
		defer cancel()

		var req types.InsightsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid request body", err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		start := time.Now()

		res, err := analyzer.AnalyzeRepos(ctx, req.Repos, req.Days)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		appLogger.InsightsLogger(len(req.Repos), req.Days, len(res.Workload.PerContributor), time.Since(start), c.GetBool("cache_hit"))

		c.JSON(http.StatusOK, res)
	}
}
