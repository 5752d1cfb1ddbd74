package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-lifecycle/internal/entity"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/cache"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/config"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/database"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/integration/ga4"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/integration/plunk"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/integration/stripe"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/logger"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/mail"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/memory"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/queue"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/ratelimit"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/storage"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/token"
	"github.com/xavierca1/ligue-lifecycle/internal/infra/worker"
	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger ainda não existe
		panic(err)
	}

	log := logger.ForEnvironment(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}

	resp := handlers.NewResponder(cfg.DiagnosticMode(), log)
	health := handlers.NewHealthHandler(version, resp)
	recorder := middleware.PrometheusRecorder{}

	// 1. Redis (store e/ou rate limit)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		health.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	// 2. Progresso e idempotência
	var (
		progressRepo entity.ProgressRepository
		idem         entity.IdempotencyStore
		ledger       entity.RemovalLedger
		purger       worker.Purger
	)
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if err := database.Migrate(cfg.DatabaseURL, log); err != nil {
			return err
		}
		db, err := database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		health.Register("database", func(ctx context.Context) error { return db.PingContext(ctx) })

		idemRepo := database.NewIdempotencyRepository(db)
		progressRepo, idem, purger = database.NewProgressRepository(db), idemRepo, idemRepo
		ledger = database.NewRemovalLedger(db)
	case config.BackendRedis:
		progressRepo = cache.NewRedisProgressRepository(rdb, "")
		idem = cache.NewRedisIdempotencyStore(rdb, "")
		ledger = cache.NewRedisRemovalLedger(rdb, "")
	default:
		store := memory.NewIdempotencyStore()
		progressRepo, idem, purger = memory.NewProgressRepository(), store, store
		ledger = memory.NewRemovalLedger()
	}
	if purger != nil {
		go worker.NewPurgeWorker(purger, cfg.PurgeInterval, log).Start(ctx)
	}

	// 3. Rate limit
	var limiter usecase.RateLimiter
	if cfg.RateLimitBackend == config.BackendRedis {
		limiter = ratelimit.NewRedis(rdb, "")
	} else {
		mem := ratelimit.NewMemory()
		go mem.RunJanitor(ctx, time.Minute)
		limiter = mem
	}

	// 4. Colaboradores externos
	email, err := newEmailProvider(cfg, log)
	if err != nil {
		return err
	}

	var analytics usecase.AnalyticsSink
	if ga := ga4.NewClient(cfg.GA4.MeasurementID, cfg.GA4.APISecret, cfg.GA4.Endpoint, cfg.CallTimeout, log); ga.Enabled() {
		analytics = ga
	} else {
		log.Warn("GA4 not configured, analytics disabled")
	}

	payments := stripe.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, log)
	issuer := token.NewIssuer(cfg.Download.Secret, cfg.Download.TTL, cfg.BaseURL)

	var locator usecase.AssetLocator = storage.NewStaticLocator(cfg.Download.AssetBaseURL)
	if cfg.S3.Bucket != "" {
		s3Locator, err := storage.NewS3Locator(ctx, cfg.S3, log)
		if err != nil {
			return err
		}
		locator = s3Locator
	}

	// 5. Remoções agendadas: RabbitMQ quando configurado, timers em memória caso contrário
	var (
		removals     usecase.RemovalScheduler
		memScheduler *memory.RemovalScheduler
		rmq          *queue.RabbitMQ
	)
	if cfg.RabbitMQURL != "" {
		rmq, err = queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer rmq.Close()
		health.Register("rabbitmq", func(context.Context) error {
			if rmq.Conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		})
		removals = queue.NewRemovalProducer(rmq.Ch)
	} else {
		log.Warn("RABBITMQ_URL not set, deferred removals are kept in memory")
		memScheduler = memory.NewRemovalScheduler(cfg.CallTimeout, log)
		defer memScheduler.Stop()
		removals = memScheduler
	}

	// 6. Use cases
	tasks := usecase.NewBestEffort(cfg.CallTimeout, log)
	orch := usecase.NewOrchestrator(
		usecase.NewSequencePolicy(policy),
		usecase.NewProgressStore(progressRepo, cfg.DiagnosticMode()),
		idem,
		email,
		payments,
		analytics,
		removals,
		issuer,
		tasks,
		usecase.OrchestratorConfig{
			CallTimeout:      cfg.CallTimeout,
			IdempotencyTTL:   cfg.IdempotencyTTL,
			BatchParallelism: cfg.BatchParallelism,
		},
		log,
	).WithRecorder(recorder).WithRemovalLedger(ledger)
	admission := usecase.NewAdmission(limiter, recorder, log)
	downloads := usecase.NewDownloads(issuer, locator, policy, log)

	if memScheduler != nil {
		memScheduler.Bind(orch.CompleteRemoval)
	}
	if rmq != nil {
		consumerCh, err := rmq.Conn.Channel()
		if err != nil {
			return err
		}
		defer consumerCh.Close()
		w := queue.NewWorker(consumerCh, orch, cfg.CallTimeout, log)
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("removal worker stopped", zap.Error(err))
			}
		}()
	}

	// 7. HTTP
	router := handlers.NewRouter(handlers.RouterDeps{
		Progress:       handlers.NewProgressHandler(orch, admission, cfg.RateLimits, resp),
		Lead:           handlers.NewLeadHandler(orch, admission, cfg.RateLimits, resp),
		Email:          handlers.NewEmailHandler(orch, usecase.NewSubscriptions(orch, issuer), admission, cfg.RateLimits, resp),
		Webhook:        handlers.NewWebhookHandler(payments, orch, resp, log),
		Batch:          handlers.NewBatchHandler(orch, resp),
		Download:       handlers.NewDownloadHandler(downloads, resp),
		Health:         health,
		AllowedOrigins: cfg.AllowedOrigins,
		SystemToken:    cfg.SystemToken,
		RequestTimeout: 2*cfg.CallTimeout + 5*time.Second,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreBackend),
			zap.String("rate_limit", cfg.RateLimitBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	tasks.Wait()
	return nil
}

// newEmailProvider keeps contacts and sequences at Plunk; transactional mail
// goes through SMTP when EMAIL_TRANSACTIONAL=smtp.
func newEmailProvider(cfg *config.Config, log *zap.Logger) (usecase.EmailProvider, error) {
	plunkClient := plunk.NewClient(cfg.Plunk.APIKey, cfg.Plunk.BaseURL, cfg.Plunk.Timeout, cfg.Plunk.Sequences, log)
	if cfg.Plunk.APIKey == "" {
		log.Warn("PLUNK_API_KEY not set, email calls will fail")
	}
	if cfg.TransactionalTransport != "smtp" {
		return plunkClient, nil
	}

	templates, err := templateFS(cfg.SMTP.TemplatesDir)
	if err != nil {
		return nil, err
	}
	sender := mail.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From, templates, log)
	return mail.NewHybrid(plunkClient, sender), nil
}

// templateFS prefers templates on disk and falls back to the embedded set.
func templateFS(dir string) (fs.FS, error) {
	if dir == "" {
		return mail.DefaultTemplates(), nil
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return mail.DefaultTemplates(), nil
	case err != nil:
		return nil, err
	case !info.IsDir():
		return nil, errors.New(dir + " is not a directory")
	}
	return os.DirFS(dir), nil
}

