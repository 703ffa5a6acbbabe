package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/twmb/franz-go/pkg/kgo"

	"dossier/internal/blob"
	enrollmenthandler "dossier/internal/enrollment/handler"
	"dossier/internal/enrollment/metrics"
	"dossier/internal/enrollment/service"
	enrollmentmemory "dossier/internal/enrollment/store/memory"
	enrollmentpostgres "dossier/internal/enrollment/store/postgres"
	jwttoken "dossier/internal/jwt_token"
	"dossier/internal/notify"
	"dossier/internal/platform/config"
	"dossier/internal/platform/database"
	"dossier/internal/platform/kafka"
	httpmetrics "dossier/internal/platform/metrics"
	platformredis "dossier/internal/platform/redis"
	"dossier/internal/ratelimit"
	"dossier/pkg/platform/audit"
	"dossier/pkg/platform/audit/outbox"
	"dossier/pkg/platform/audit/publisher"
	auditmemory "dossier/pkg/platform/audit/store/memory"
	auditpostgres "dossier/pkg/platform/audit/store/postgres"
	"dossier/pkg/platform/circuit"
)

// persistence is what the enrollment service needs from a backing store.
type persistence interface {
	Stores() service.Stores
	service.StoreTx
	service.Directory
}

type app struct {
	cfg      config.Server
	logger   *slog.Logger
	service  *service.Service
	files    *blob.Handler
	jwt      *jwttoken.Service
	checkers []readinessChecker
	relay    *outbox.Relay
	limiter  *ratelimit.Limiter
	closers  []func()
}

// build connects every configured backend and assembles the service. Backends
// left unconfigured fall back to in-process implementations.
func build(ctx context.Context, cfg config.Server, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var (
		store      persistence
		auditStore audit.Store
	)
	if cfg.Database.Enabled() {
		if cfg.Database.MigrateOnStart {
			if err := database.Migrate(cfg.Database.URL, logger); err != nil {
				return nil, err
			}
		}
		pool, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.checkers = append(a.checkers, database.NewReadinessChecker(pool))

		sqlDB := database.SQLDB(pool)
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
		store = enrollmentpostgres.New(pool)
		auditStore = auditpostgres.New(sqlDB)
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		store = enrollmentmemory.New()
		auditStore = auditmemory.NewInMemoryStore()
	}

	var kafkaClient *kgo.Client
	if cfg.Kafka.Enabled() {
		client, err := kafka.NewClient(ctx, cfg.Kafka)
		if err != nil {
			return nil, err
		}
		kafkaClient = client
		a.closers = append(a.closers, client.Close)
		a.checkers = append(a.checkers, kafka.NewReadinessChecker(client))
		if cfg.Kafka.EnsureTopics {
			topics := []string{cfg.Kafka.NotifyTopic}
			for _, category := range audit.Categories() {
				topics = append(topics, outbox.Topic(cfg.Kafka.AuditTopicPrefix, category))
			}
			if err := kafka.EnsureTopics(ctx, client, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor, logger, topics...); err != nil {
				return nil, err
			}
		}
	}

	signer := blob.NewURLSigner(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
	var (
		blobOpts     []blob.Option
		limiterStore ratelimit.Store = ratelimit.NewMemoryStore()
	)
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		a.checkers = append(a.checkers, redisClient)
		blobOpts = append(blobOpts, blob.WithURLCache(blob.NewRedisURLCache(redisClient)))
		limiterStore = ratelimit.NewRedisStore(redisClient)
	}
	a.limiter = ratelimit.NewLimiter(limiterStore, logger)
	files, err := blob.NewFileStore(cfg.Blob.DataDir, cfg.Blob.BaseURL+"/files", signer, blobOpts...)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.files = blob.NewHandler(files, signer, logger)

	var notifier service.Notifier = notify.NewLogSender(logger)
	if kafkaClient != nil {
		breaker := circuit.New("notifications",
			circuit.WithFailureThreshold(cfg.Notify.FailureThreshold),
			circuit.WithCooldown(cfg.Notify.Cooldown),
		)
		notifier = notify.NewKafkaSender(kafkaClient, cfg.Kafka.NotifyTopic, logger,
			notify.WithBreaker(breaker),
			notify.WithSendTimeout(cfg.Notify.SendTimeout),
		)
		if source, isOutbox := auditStore.(*auditpostgres.Store); isOutbox {
			a.relay = outbox.New(source, kafkaClient, cfg.Kafka.AuditTopicPrefix,
				outbox.WithInterval(cfg.Kafka.RelayInterval),
				outbox.WithLogger(logger),
				outbox.WithMetrics(outbox.NewMetrics()),
			)
		}
	}

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(logger),
	)
	a.closers = append(a.closers, auditPublisher.Close)

	a.service = service.New(store.Stores(), store, store, files, notifier,
		service.WithLogger(logger),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(metrics.New()),
		service.WithDownloadTTL(cfg.Blob.DownloadTTL),
	)
	a.jwt = jwttoken.New(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)

	ok = true
	return a, nil
}

func (a *app) Router() http.Handler {
	limits := a.cfg.Limits
	enrollment := enrollmenthandler.New(a.service, a.logger,
		enrollmenthandler.WithUploadMiddleware(a.limiter.PerUser("upload",
			ratelimit.Limit{Requests: limits.UploadRequests, Window: limits.UploadWindow})),
		enrollmenthandler.WithDownloadMiddleware(a.limiter.PerUser("download_url",
			ratelimit.Limit{Requests: limits.DownloadRequests, Window: limits.DownloadWindow})),
	)
	return newRouter(routerDeps{
		Logger:      a.logger,
		Enrollment:  enrollment,
		Files:       a.files,
		Authn:       a.jwt,
		AdminToken:  a.cfg.Auth.AdminToken,
		HTTPMetrics: httpmetrics.New(),
		Checkers:    a.checkers,
	})
}

// Close releases backends in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
