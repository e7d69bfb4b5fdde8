package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/observability"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := observability.NewLogger(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	}

	// Catalog
	products := catalog.NewStore()
	if err := seedCatalog(ctx, cfg, products, log); err != nil {
		log.Fatal("seed catalog", zap.Error(err))
	}

	opts := []orders.Option{
		orders.WithProducerName(cfg.ServiceName),
		orders.WithStrictTransitions(cfg.StrictTransitions),
		orders.WithLowStockThreshold(cfg.LowStockThreshold),
	}

	// Redis (optional)
	var (
		idem  httpx.Idempotency
		dedup inventory.Deduper
	)
	if cfg.RedisAddr != "" {
		rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, running without cache and idempotency", zap.Error(err))
		} else {
			defer rdb.Close()
			opts = append(opts, orders.WithStatusCache(redisx.NewStatusCache(rdb, log)))
			idem = redisx.NewIdempotency(rdb, cfg.RequestTimeout+5*time.Second)
			dedup = redisx.NewDeduper(rdb, "inventory")
			log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
		}
	}

	// Kafka (optional)
	var prod *kafkax.Producer
	consumerDone := make(chan struct{})
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start(ctx)
		opts = append(opts, orders.WithPublisher(kafkax.NewEventPublisher(prod)))

		restock := inventory.NewService(products, dedup, log)
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InventoryGroup, inventory.TopicStockReceived, cfg.InventoryWorkers, log)
		go func() {
			defer close(consumerDone)
			if err := cons.Start(ctx, restock.HandleStockReceived); err != nil {
				log.Error("restock consumer stopped", zap.Error(err))
			}
		}()
		log.Info("kafka enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		close(consumerDone)
	}

	svc := orders.NewService(products, orders.NewStore(), log, opts...)

	router := httpx.NewRouter(log, cfg.RequestTimeout)
	(&httpx.ProductsHandler{Catalog: products, Log: log}).Register(router)
	(&httpx.OrdersHandler{Service: svc, Idem: idem, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close() // stop intake, flush queue, close writer
	}
	cancel() // stop consumer and producer loops
	<-consumerDone
	if prod != nil {
		prod.WaitClosed()
	}
	if err := shutdownTracing(ctx2); err != nil {
		log.Warn("tracing shutdown", zap.Error(err))
	}
}

// seedCatalog loads products from Postgres when configured, otherwise the
// built-in starter set unless seeding is off.
func seedCatalog(ctx context.Context, cfg config.Config, store *catalog.Store, log *zap.Logger) error {
	if cfg.PostgresDSN != "" {
		loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		ps, err := postgres.LoadCatalog(loadCtx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		log.Info("catalog loaded from postgres", zap.Int("products", len(ps)))
		return store.Seed(ctx, ps)
	}
	if !cfg.SeedCatalog {
		return nil
	}
	ps := catalog.DefaultSeed()
	log.Info("catalog seeded", zap.Int("products", len(ps)))
	return store.Seed(ctx, ps)
}
