package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/onlyperf/warehouse-api/internal/application/assembly"
	"github.com/onlyperf/warehouse-api/internal/application/catalog"
	"github.com/onlyperf/warehouse-api/internal/application/order"
	appportal "github.com/onlyperf/warehouse-api/internal/application/portal"
	"github.com/onlyperf/warehouse-api/internal/application/ports"
	"github.com/onlyperf/warehouse-api/internal/application/scanning"
	"github.com/onlyperf/warehouse-api/internal/application/shipment"
	"github.com/onlyperf/warehouse-api/internal/application/shopifysync"
	"github.com/onlyperf/warehouse-api/internal/domain/qrcode"
	"github.com/onlyperf/warehouse-api/internal/domain/repository"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/memory"
	infraportal "github.com/onlyperf/warehouse-api/internal/infrastructure/portal"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/postgres"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/session"
	"github.com/onlyperf/warehouse-api/internal/infrastructure/shopify"
	httpRouter "github.com/onlyperf/warehouse-api/internal/interfaces/http"
	"github.com/onlyperf/warehouse-api/pkg/config"
	"github.com/onlyperf/warehouse-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.Storage).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		repos    repository.Repos
		txRunner repository.TxRunner
	)
	if cfg.App.Storage == "memory" {
		store := memory.NewStore()
		repos, txRunner = store.Repos(), memory.NewTxRunner(store)
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	} else {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		repos, txRunner = postgres.NewRepos(pool), postgres.NewTxRunner(pool)
	}

	// Sesiones de escaneo: Redis si está configurado, si no memoria del proceso
	var sessionStore scanning.SessionStore = session.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		client, err := session.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer client.Close()
		sessionStore = session.NewRedisStore(client, cfg.Redis.SessionTTL)
	}

	// Cola de sincronización en segundo plano (Shopify + portal)
	queue := shopifysync.NewQueue(shopifysync.QueueConfig{
		Workers:     cfg.Shopify.QueueWorkers,
		Size:        cfg.Shopify.QueueSize,
		Timeout:     cfg.Shopify.TaskTimeout(),
		MaxAttempts: cfg.Shopify.MaxAttempts,
		RetryBase:   cfg.Shopify.RetryBase(),
	}, log.Component("sync_queue"))
	queueCtx, stopQueue := context.WithCancel(ctx)
	defer stopQueue()
	queue.Start(queueCtx)

	shopifySvc := shopifysync.NewService(repos,
		shopify.ClientFactory(shopify.Config{
			APIVersion: cfg.Shopify.APIVersion,
			RetryBase:  cfg.Shopify.RetryBase(),
		}),
		log.Component("shopify_sync"),
		shopifysync.WithBatchDelay(cfg.Shopify.BatchDelay()),
	)

	var notifier ports.PortalNotifier
	if n := infraportal.NewNotifier(cfg.Portal.WebhookURL, cfg.Portal.WebhookSecret); n != nil {
		notifier = n
	} else {
		log.Info().Msg("PORTAL_WEBHOOK_URL vacío: notificaciones al portal deshabilitadas")
	}
	dispatcher := shopifysync.NewDispatcher(queue, shopifySvc, notifier)

	gen := qrcode.NewGenerator()
	gen.MaxAttempts = cfg.Warehouse.QRMaxAttempts
	codes := shipment.NewCodeAllocator(gen)

	catalogSvc := catalog.NewService(repos.Products, log.Component("catalog"))
	shipmentSvc := shipment.NewService(txRunner, repos, codes, dispatcher, cfg.Warehouse.InsertBatchSize, log.Component("shipments"))
	scanSvc := scanning.NewService(txRunner, repos, dispatcher, log.Component("scanning"))
	sessionSvc := scanning.NewSessionService(sessionStore, repos.Units)
	assemblySvc := assembly.NewService(txRunner, repos, codes, dispatcher, log.Component("assembly"))
	orderSvc := order.NewService(txRunner, repos, dispatcher, log.Component("orders"))
	deliverySvc := order.NewDeliveryService(txRunner, repos, dispatcher, log.Component("deliveries"))
	portalSvc := appportal.NewService(repos, log.Component("portal"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "OnlyPerf Warehouse API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "sync_queue": queue.Stats()})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Catalog:       catalogSvc,
		Shipments:     shipmentSvc,
		Scanning:      scanSvc,
		Sessions:      sessionSvc,
		Assemblies:    assemblySvc,
		Orders:        orderSvc,
		Deliveries:    deliverySvc,
		Shopify:       shopifySvc,
		SyncQueue:     queue,
		Portal:        portalSvc,
		JWTSecret:     cfg.JWT.Secret,
		WebhookSecret: cfg.Portal.WebhookSecret,
		SessionCookie: cfg.Portal.SessionCookie,
		Log:           log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Drena las tareas pendientes antes de cerrar el pool
	queue.Stop()
	log.Info().Msg("aplicación detenida")
}
