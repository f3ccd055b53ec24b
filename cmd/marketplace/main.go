package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hema22923/AgriConnect/internal/assistant"
	c "github.com/hema22923/AgriConnect/internal/cache"
	"github.com/hema22923/AgriConnect/internal/config"
	h "github.com/hema22923/AgriConnect/internal/http"
	"github.com/hema22923/AgriConnect/internal/logger"
	"github.com/hema22923/AgriConnect/internal/publisher"
	"github.com/hema22923/AgriConnect/internal/repository"
	s "github.com/hema22923/AgriConnect/internal/service"
	"github.com/hema22923/AgriConnect/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "agriconnect-marketplace"

type stores struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	users    repository.UserRepository
	close    func(context.Context) error
}

type orderPublisher interface {
	s.OrderEvents
	Close() error
}

func main() {
	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to build logger")
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.TracingEnabled, serviceName, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open document store")
	}

	carts, closeCarts, err := openCartStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.CartDriver).Msg("failed to open cart store")
	}

	var events orderPublisher = publisher.Noop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		events = publisher.NewKafkaPublisher(cfg.OrderEventsTopic, brokers...)
		log.Info().Strs("brokers", brokers).Str("topic", cfg.OrderEventsTopic).Msg("publishing order events")
	}

	var completer assistant.Completer
	if cfg.GeminiAPIKey != "" {
		gemini := assistant.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel)
		completer = assistant.NewBreakerCompleter(gemini, log)
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, assistant endpoints disabled")
	}

	catalog := s.NewCatalogService(st.products, log)
	cartService := s.NewCartService(carts, catalog, log)
	checkout := s.NewCheckoutService(st.orders, st.users, carts, events, log)
	ratings := s.NewRatingAggregator(st.products, log)
	feed := s.NewOrderFeed(st.orders, ratings, events, log)
	users := s.NewUserService(st.users, log)

	if err := users.EnsureAdmin(ctx, cfg.AdminUserID, cfg.AdminEmail); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap admin account")
	}

	router := h.NewRouter(h.Handlers{
		Products:  h.NewProductHandler(catalog, cfg.RequestTimeout),
		Cart:      h.NewCartHandler(cartService, cfg.RequestTimeout),
		Checkout:  h.NewCheckoutHandler(checkout, cfg.RequestTimeout),
		Orders:    h.NewOrdersHandler(feed, cfg.RequestTimeout, log),
		Users:     h.NewUserHandler(users, cfg.RequestTimeout),
		Assistant: h.NewAssistantHandler(assistant.New(completer), cfg.RequestTimeout),
	}, users, log, cfg.RequestTimeout)

	// WriteTimeout stays unset: order streams are long-lived responses
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("marketplace starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := events.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close event publisher")
	}
	if err := closeCarts(); err != nil {
		log.Warn().Err(err).Msg("failed to close cart store")
	}
	if err := st.close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("failed to disconnect document store")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("failed to flush traces")
	}

	log.Info().Msg("server exited")
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.StoreDriver != config.DriverMongo {
		mem := repository.NewMemoryStore()
		log.Warn().Msg("using in-memory document store, data is lost on restart")
		return &stores{
			products: mem,
			orders:   mem,
			users:    mem,
			close:    func(context.Context) error { return nil },
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db, err := repository.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return nil, err
	}
	if err := repository.CreateIndexes(connectCtx, db); err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.MongoDBName).Msg("connected to MongoDB")

	return &stores{
		products: repository.NewMongoProductRepository(db),
		orders:   repository.NewMongoOrderRepository(db),
		users:    repository.NewMongoUserRepository(db),
		close:    db.Client().Disconnect,
	}, nil
}

func openCartStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (c.CartStore, func() error, error) {
	if cfg.CartDriver != config.DriverRedis {
		return c.NewMemoryCartStore(cfg.CartTTL), func() error { return nil }, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("Redis ping succeeded")

	return c.NewRedisCartStore(redisClient, cfg.CartTTL), redisClient.Close, nil
}
