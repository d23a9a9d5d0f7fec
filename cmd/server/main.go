package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gogetteranushka/wellness-agent-core/internal/config"
	"github.com/gogetteranushka/wellness-agent-core/internal/database"
	"github.com/gogetteranushka/wellness-agent-core/internal/logger"
	"github.com/gogetteranushka/wellness-agent-core/internal/metrics"
	"github.com/gogetteranushka/wellness-agent-core/internal/routes"
	eventsws "github.com/gogetteranushka/wellness-agent-core/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	deps := routes.Deps{Logger: log, Metrics: metrics.New()}
	if cfg.StoreDriver == config.StoreDriverPostgres {
		if err := database.ConnectDB(ctx, cfg.DBUrl); err != nil {
			return err
		}
		defer database.CloseDB()
		deps.DB = database.DB
	}

	hub := eventsws.NewHub(log)
	go hub.Run(ctx)
	deps.Hub = hub

	// 3. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "wellness-agent-core",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AITimeout + 10*time.Second,
	})

	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "ok",
			"store_driver": cfg.StoreDriver,
		})
	})
	if err := routes.RegisterRoutes(app, cfg, deps); err != nil {
		return err
	}

	// 4. Start Server
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		serveErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
