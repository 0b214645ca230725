package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"floor-designer/internal/common/config"
	"floor-designer/internal/common/logging"
	"floor-designer/internal/common/middleware"
	"floor-designer/internal/layout/catalog"
	"floor-designer/internal/layout/handlers"
	"floor-designer/internal/layout/models"
	"floor-designer/internal/layout/render"
	"floor-designer/internal/layout/repository"
	"floor-designer/internal/layout/service"
	"floor-designer/internal/layout/tablestatus"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
)

// ============================================================
// Floor Designer Service
// ============================================================

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, "designer")
	if cfg.IsProduction() {
		logger.SetFormatter(log.JSONFormatter)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal("open db", "path", cfg.DBPath, "err", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(ctx); err != nil {
		logger.Fatal("init db", "err", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("load catalog", "path", cfg.CatalogPath, "err", err)
	}
	logger.Info("catalog loaded", "entries", len(cat.Entries()))

	// ============================================================
	// Table status source
	// ============================================================

	var tables tablestatus.Source
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("table status redis unreachable, statuses will be empty", "addr", cfg.RedisAddr, "err", err)
		}
		tables = tablestatus.NewRedisSource(client)
	}

	// ============================================================
	// Editor wiring
	// ============================================================

	outbox := service.NewOutbox(repo, cfg.OutboxSize, logger.WithPrefix("outbox"))
	go outbox.Run(ctx)

	policy := service.MergeLenient
	if cfg.StrictMerge {
		policy = service.MergeStrict
	}

	hub := render.NewHub()
	registry := service.NewRegistry(repo, outbox, logger, service.RegistryConfig{
		CellSize:    cfg.CellSize,
		MergePolicy: policy,
		Input: service.InputConfig{
			LongPress:   cfg.LongPress,
			DoubleClick: cfg.DoubleClick,
		},
		OnOpen: func(ed *service.Editor) { hub.Track(ed.Store) },
	})

	bounds := models.Bounds{Width: cfg.RoomWidth, Depth: cfg.RoomDepth}
	if _, err := registry.EnsureDefault(ctx, "Main hall", bounds); err != nil {
		logger.Fatal("ensure default layout", "err", err)
	}

	layoutHandler := handlers.NewLayoutHandler(registry, cat, tables, hub, logger.WithPrefix("http"))

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		AppName:      "Floor Designer",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.CORS(cfg.CORSOrigins))
	app.Use(middleware.Logger(logger.WithPrefix("access")))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe(db))

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.OpenAPISpec)

	// ============================================================
	// Layout Routes
	// ============================================================

	layoutHandler.Register(app)

	// ============================================================
	// Server Start
	// ============================================================

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("starting floor designer", "addr", addr, "env", cfg.Environment)

	if err := app.Listen(addr); err != nil {
		logger.Fatal("failed to start server", "err", err)
	}

	// Дописываем очередь хранения перед выходом.
	logger.Info("flushing outbox", "pending", outbox.Pending())
	outbox.Flush(context.Background())
}
