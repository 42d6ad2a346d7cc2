package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tu-usuario/inventory-core/internal/application/inventory"
	"github.com/tu-usuario/inventory-core/internal/application/policy"
	"github.com/tu-usuario/inventory-core/internal/application/ports"
	"github.com/tu-usuario/inventory-core/internal/application/posting"
	"github.com/tu-usuario/inventory-core/internal/application/reservation"
	"github.com/tu-usuario/inventory-core/internal/infrastructure/cache"
	"github.com/tu-usuario/inventory-core/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/inventory-core/internal/interfaces/http"
	"github.com/tu-usuario/inventory-core/pkg/config"
	"github.com/tu-usuario/inventory-core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   "info",
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Redis: cache advisory de disponibilidad y locks de operación por reserva.
	// Si no hay Redis disponible se degrada a las variantes en memoria.
	var (
		availCache ports.AvailabilityCache
		opLocker   ports.OperationLocker
	)
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("sin Redis; usando cache y locks en memoria")
		availCache = cache.NewMemoryAvailabilityCache()
		opLocker = cache.NewMemoryOperationLocker()
	} else {
		defer redisClient.Close()
		cacheLog := log.Component("cache")
		availCache = cache.NewRedisAvailabilityCache(redisClient, cacheLog)
		opLocker = cache.NewRedisOperationLocker(redisClient, cacheLog)
	}

	txRunner := postgres.NewTxRunner(pool)
	idemRepo := postgres.NewIdempotencyRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	reservationRepo := postgres.NewReservationRepository(pool)

	retryPolicy := posting.RetryPolicy{
		MaxAttempts: cfg.Inventory.RetryMaxAttempts,
		BaseBackoff: cfg.Inventory.RetryBaseBackoff,
		MaxBackoff:  cfg.Inventory.RetryMaxBackoff,
		MaxElapsed:  cfg.Inventory.RetryMaxElapsed,
	}
	executor := posting.NewExecutor(txRunner, idemRepo, retryPolicy, log, nil)
	engine := inventory.NewCostEngine(nil)
	gate := policy.NewNegativeStockGate(cfg.Inventory.NegativeOverridesEnabled)

	postMovementUC := inventory.NewPostMovementUseCase(executor, engine, gate, availCache, log, nil)
	transferUC := inventory.NewTransferUseCase(executor, engine, gate, availCache, log, nil)
	reverseTransferUC := inventory.NewReverseTransferUseCase(executor, engine, availCache, log, nil)
	availabilityService := inventory.NewAvailabilityService(movementRepo, reservationRepo, availCache, cfg.Redis.AvailabilityTTL)
	reservationUC := reservation.NewUseCase(executor, engine, opLocker, availCache, cfg.Redis.OperationLockTTL, log, nil)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		PostMovement:    postMovementUC,
		Transfer:        transferUC,
		ReverseTransfer: reverseTransferUC,
		Availability:    availabilityService,
		MovementRepo:    movementRepo,
		ReservationUC:   reservationUC,
		ReservationRepo: reservationRepo,
		JWTSecret:       cfg.JWT.Secret,
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

	log.Info().Msg("aplicación detenida")
}
