package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tuanvumaihuynh/pantry-sync/internal/barcode"
	"github.com/tuanvumaihuynh/pantry-sync/internal/config"
	"github.com/tuanvumaihuynh/pantry-sync/internal/event"
	"github.com/tuanvumaihuynh/pantry-sync/internal/http"
	"github.com/tuanvumaihuynh/pantry-sync/internal/log"
	"github.com/tuanvumaihuynh/pantry-sync/internal/relay"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository/memory"
	"github.com/tuanvumaihuynh/pantry-sync/internal/service"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/cache"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/mq"
	"github.com/tuanvumaihuynh/pantry-sync/internal/telemetry"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/cmdutil"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running standalone application: %v\n", err)
		os.Exit(1)
	}
}

// stack is the store dependent part of the process.
type stack struct {
	db            db.DB
	health        db.HealthChecker
	inventoryRepo repository.InventoryItemRepository
	shoppingRepo  repository.ShoppingItemRepository
	outboxMsgRepo repository.OutboxMsgRepository
	producer      mq.Producer
	consumer      mq.Consumer
	cleanup       []func()
}

func (s *stack) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log     config.Log
		HTTP    config.HTTP
		Auth    config.Auth
		Store   config.Store
		Suggest config.Suggest
		Barcode config.Barcode
		Redis   config.Redis
		Relay   config.Relay
		Otel    config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	var st *stack
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		st = newMemoryStack(logger)
	default:
		st, err = newPostgresStack(ctx, logger)
		if err != nil {
			return err
		}
	}
	defer st.close()

	v, err := validator.NewDefaultValidator()
	if err != nil {
		return fmt.Errorf("error creating validator: %w", err)
	}

	var (
		resolver     barcode.Resolver = barcode.NewClient(cfg.Barcode, logger)
		barcodeCache http.BarcodeCache
	)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("error creating redis client: %w", err)
		}
		defer func(rdb *redis.Client) {
			if err := rdb.Close(); err != nil {
				logger.ErrorContext(ctx, "error closing redis client", slog.Any("error", err))
			}
		}(rdb)

		cached := barcode.NewCachedResolver(resolver, rdb, cfg.Barcode.CacheTTL, logger)
		resolver = cached
		barcodeCache = cached
	}

	inventoryService := service.NewInventoryService(cfg.Store, logger, st.db, v,
		st.inventoryRepo, st.outboxMsgRepo, resolver)
	shoppingService := service.NewShoppingService(cfg.Store, cfg.Suggest, logger, st.db, v,
		st.shoppingRepo, st.inventoryRepo, st.outboxMsgRepo)

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	if st.consumer != nil {
		svc := event.New(logger, st.consumer)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			return fmt.Errorf("error running event service: %w", err)
		}
		logger.InfoContext(ctx, "event service started")

		wg.Go(func() {
			<-interruptChan

			logger.InfoContext(ctx, "event service is shutting down")
			cleanup()

			logger.InfoContext(ctx, "event service is stopped")
		})
	}

	svc := http.New(cfg.HTTP, cfg.Auth, logger, st.health, inventoryService, shoppingService, barcodeCache)
	httpCleanup, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("error running http service: %w", err)
	}
	logger.InfoContext(ctx, "http service started",
		slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)),
		slog.String("store", cfg.Store.Driver.String()),
	)

	wg.Go(func() {
		<-interruptChan

		logger.InfoContext(ctx, "http service is shutting down")
		if err := httpCleanup(ctx); err != nil {
			logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
		}

		logger.InfoContext(ctx, "http service is stopped")
	})

	wg.Go(func() {
		svc := relay.NewService(cfg.Relay, logger, st.db, st.outboxMsgRepo, st.producer)
		cleanup := svc.Run(ctx)
		logger.InfoContext(ctx, "relay service started")

		<-interruptChan

		logger.InfoContext(ctx, "relay service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "relay service is stopped")
	})

	wg.Wait()

	return nil
}

// newMemoryStack keeps every item in process memory and logs domain events
// instead of publishing them.
func newMemoryStack(logger *slog.Logger) *stack {
	mdb := memory.New()
	logger.Warn("using the in-memory item store, data is lost on restart")

	return &stack{
		db:            mdb,
		health:        mdb,
		inventoryRepo: memory.NewInventoryItemRepository(mdb),
		shoppingRepo:  memory.NewShoppingItemRepository(mdb),
		outboxMsgRepo: memory.NewOutboxMsgRepository(mdb),
		producer:      mq.NewLogProducer(logger),
	}
}

func newPostgresStack(ctx context.Context, logger *slog.Logger) (*stack, error) {
	type Config struct {
		Postgres config.Postgres
		Kafka    config.Kafka
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return nil, fmt.Errorf("error loading postgres config: %w", err)
	}

	st := &stack{}

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("error creating pgx pool: %w", err)
	}
	st.cleanup = append(st.cleanup, pgxPool.Close)

	kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
	if err != nil {
		st.close()
		return nil, fmt.Errorf("error creating kafka producer: %w", err)
	}
	st.cleanup = append(st.cleanup, kafkaProducer.Close)

	kafkaConsumer, err := mq.NewKafkaConsumer(ctx, cfg.Kafka, logger)
	if err != nil {
		st.close()
		return nil, fmt.Errorf("error creating kafka consumer: %w", err)
	}

	dbClient := db.NewClient(pgxPool)
	st.db = dbClient
	st.health = dbClient
	st.inventoryRepo = repository.NewInventoryItemRepository(dbClient)
	st.shoppingRepo = repository.NewShoppingItemRepository(dbClient)
	st.outboxMsgRepo = repository.NewOutboxMsgRepository(dbClient)
	st.producer = kafkaProducer
	st.consumer = kafkaConsumer

	return st, nil
}
