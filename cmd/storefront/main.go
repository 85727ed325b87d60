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

	"github.com/fjod/go_bullion/internal/backend"
	"github.com/fjod/go_bullion/internal/checkout"
	"github.com/fjod/go_bullion/internal/config"
	"github.com/fjod/go_bullion/internal/events"
	h "github.com/fjod/go_bullion/internal/http"
	"github.com/fjod/go_bullion/internal/session"
	"github.com/fjod/go_bullion/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

const janitorInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Service: "storefront", Level: cfg.LogLevel})

	// forward incoming trace context to the backend API
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("storefront stopped with error")
	}
	log.Info("server exited")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openCartStore(ctx, cfg)
	if err != nil {
		return err
	}
	carts := session.NewManager(store, log)
	defer func() {
		if err := carts.Close(); err != nil {
			log.WithError(err).Warn("failed to close cart store")
		}
	}()

	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
	}, log)
	if err != nil {
		return err
	}

	var (
		publisher events.Publisher = events.Noop{}
		consumer  *events.Consumer
	)
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(log, cfg.KafkaBrokers...)
		consumer = events.NewConsumer(consumerGroup(), func(_ context.Context, ev events.OrderPlaced) error {
			carts.Forget(ev.SessionID)
			return nil
		}, log, cfg.KafkaBrokers...)
		defer consumer.Close()
	}
	defer publisher.Close()

	flow := checkout.NewFlow(client, publisher, log)

	handlers := h.Handlers{
		Products:     h.NewProductHandler(client, cfg.RequestTimeout),
		Cart:         h.NewCartHandler(carts, client, cfg.RequestTimeout, cfg.MaxRequestBodySize),
		Checkout:     h.NewCheckoutHandler(carts, client, flow, cfg.RequestTimeout, cfg.MaxRequestBodySize),
		Orders:       h.NewOrdersHandler(client, cfg.RequestTimeout),
		Appointments: h.NewAppointmentsHandler(client, cfg.RequestTimeout, cfg.MaxRequestBodySize),
		Auth:         h.NewAuthHandler(client, cfg.RequestTimeout, cfg.MaxRequestBodySize),
	}
	router := h.NewRouter(handlers, h.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.SecureCookies,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"port":       cfg.HTTPPort,
			"cart_store": cfg.CartStore,
			"backend":    cfg.APIBaseURL,
		}).Info("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		runJanitor(gctx, carts, store, cfg.SessionTTL, log)
		return nil
	})

	if consumer != nil {
		g.Go(func() error {
			consumer.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// consumerGroup is unique per instance so every replica sees every order.
func consumerGroup() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return "storefront-carts-" + host
}

func openCartStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.CartStore {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return session.NewRedisStore(client, cfg.SessionTTL), nil

	case "mongo":
		db, err := session.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		store := session.NewMongoStore(db, cfg.SessionTTL)
		if err := store.CreateIndexes(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	case "sqlite", "postgres":
		store, err := session.OpenSQLStore(ctx, session.Dialect(cfg.CartStore), cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	default:
		return session.NewMemoryStore(), nil
	}
}

// runJanitor drops idle carts from memory and, for SQL stores, expired rows.
func runJanitor(ctx context.Context, carts *session.Manager, store session.Store, ttl time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := carts.Evict(ttl); n > 0 {
				log.WithField("evicted", n).Debug("idle carts evicted")
			}
			if sqlStore, ok := store.(*session.SQLStore); ok {
				n, err := sqlStore.PurgeStale(ctx, time.Now().Add(-ttl))
				if err != nil {
					log.WithError(err).Warn("failed to purge stale carts")
					continue
				}
				if n > 0 {
					log.WithField("purged", n).Info("stale carts purged")
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
