package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/api/handlers"
	"github.com/askdesk/backend/internal/corpus"
	"github.com/askdesk/backend/internal/metrics"
	"github.com/askdesk/backend/internal/middleware/ratelimit"
	"github.com/askdesk/backend/internal/middleware/security"
	"github.com/askdesk/backend/internal/middleware/validation"
	"github.com/askdesk/backend/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg

	logger.Info("Starting askdesk API server")

	metrics.Init()

	// A missing or empty corpus must fail startup, not surface later as
	// questions with no matching docs.
	result, err := a.indexer.Rebuild(context.Background())
	if err != nil {
		return fmt.Errorf("initial index build failed: %w", err)
	}
	logger.Info("Initial index built",
		zap.Int("documents", result.Documents),
		zap.Int("chunks", result.Chunks),
	)

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()

	if cfg.Corpus.Watch {
		watcher, err := corpus.NewWatcher(
			cfg.Corpus.Path,
			time.Duration(cfg.Corpus.WatchDebounceMS)*time.Millisecond,
			func() {
				if _, err := a.indexer.Rebuild(context.Background()); err != nil {
					logger.Error("Corpus-triggered rebuild failed", zap.Error(err))
				}
			},
		)
		if err != nil {
			return err
		}
		defer watcher.Close()
		watcher.Start(watchCtx)
	}

	server := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	server.Use(recover.New())
	server.Use(fiberlogger.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins: joinOrigins(cfg.Server.AllowedOrigins),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	server.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.RateLimitPerMinute,
		Logger:               logger.GetLogger(),
	})
	defer limiter.Stop()

	askHandler := handlers.NewAskHandler(a.engine, a.db)
	historyHandler := handlers.NewHistoryHandler(a.db)
	indexHandler := handlers.NewIndexHandler(a.indexer)
	wsHandler := handlers.NewWebSocketHandler(a.engine)

	api := server.Group("/api/v1", limiter.Middleware())
	api.Use(validation.Middleware(validation.Config{
		MaxQuestionLength: cfg.Server.MaxQuestionLength,
		Logger:            logger.GetLogger(),
	}))

	api.Post("/ask", askHandler.HandleAsk)
	api.Get("/history", historyHandler.GetHistory)
	api.Post("/reindex", indexHandler.HandleReindex)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		if _, err := a.manager.Active(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "index not ready",
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	server.Get("/metrics", metrics.MetricsHandler())

	server.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	server.Get("/ws/ask", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := server.Listen(addr); err != nil {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down gracefully...")
	server.Shutdown()
	logger.Info("Server stopped")

	return nil
}

func joinOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	joined := origins[0]
	for _, o := range origins[1:] {
		joined += ", " + o
	}
	return joined
}
