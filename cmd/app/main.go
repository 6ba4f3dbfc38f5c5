package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatherly/configs"
	"gatherly/internal/kafka"
	"gatherly/internal/logging"
	"gatherly/internal/migrate"
	"gatherly/internal/post"
	"gatherly/internal/ratelimit"
	"gatherly/internal/relation"
	"gatherly/internal/shared/db"
	"gatherly/internal/shared/httpx"
	"gatherly/internal/shared/jwt"
	"gatherly/internal/shared/redisx"
	"gatherly/internal/storage/s3"
	"gatherly/internal/user"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.uber.org/zap"
)

func initOTEL(ctx context.Context, cfg *configs.Config) (func(context.Context) error, error) {
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.OTEL.Endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, err
	}
	res, _ := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.OTEL.ServiceName),
		attribute.String("deployment.environment", cfg.App.Env),
	))
	tp := trace.NewTracerProvider(
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(cfg.OTEL.SamplerRatio))),
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func main() {
	cfg, err := configs.Load(os.Getenv("GATHERLY_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled {
		shutdown, err := initOTEL(ctx, cfg)
		if err != nil {
			logger.Fatal("otel exporter", zap.Error(err))
		}
		defer func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(c)
		}()
	}

	store, err := db.Open(cfg, logger)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer store.Close()

	if cfg.App.AutoMigrate {
		if err := migrate.AutoMigrateAll(store); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	rdb, err := redisx.Open(ctx, cfg.RedisAddr())
	if err != nil {
		logger.Warn("redis not reachable yet", zap.String("addr", cfg.RedisAddr()), zap.Error(err))
	}
	defer rdb.Close()

	postEvents := kafka.NewWriter(cfg.Kafka, cfg.Kafka.PostsTopic)
	defer postEvents.Close()
	engagementEvents := kafka.NewWriter(cfg.Kafka, cfg.Kafka.EngagementTopic)
	defer engagementEvents.Close()

	images, err := s3.New(cfg.S3)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}
	if err := images.EnsureBucket(ctx); err != nil {
		logger.Warn("ensure bucket", zap.String("bucket", cfg.S3.Bucket), zap.Error(err))
	}

	signer := jwt.NewSigner(cfg.JWT.Secret, cfg.JWT.TTL)

	postSvc := post.NewService(post.NewRepository(store), images, postEvents, logger.Named("post"))
	relationSvc := relation.NewService(relation.NewRepository(store, rdb, logger.Named("relation")), engagementEvents, logger.Named("relation"))
	userSvc := user.NewService(user.NewRepository(store), signer, postSvc, images, logger.Named("user"))

	mux := routes(handlers{
		posts:     post.NewHandler(postSvc),
		relations: relation.NewHandler(relationSvc),
		users:     user.NewHandler(userSvc),
	}, signer, limits{
		limiter: ratelimit.New(rdb, logger.Named("ratelimit")),
		toggles: cfg.RateLimit.Toggles,
		window:  cfg.RateLimit.Window,
	}, func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, err, "db_unavailable")
			return
		}
		httpx.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.App.Port,
		Handler:           otelhttp.NewHandler(mux, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(c)
	}()

	logger.Info("gatherly listening", zap.String("addr", cfg.App.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}
}
