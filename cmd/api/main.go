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

	"linkpay/config"
	httpHandler "linkpay/internal/adapter/http/handler"
	"linkpay/internal/adapter/http/middleware"
	"linkpay/internal/adapter/realtime"
	memStorage "linkpay/internal/adapter/storage/memory"
	pgStorage "linkpay/internal/adapter/storage/postgres"
	redisStorage "linkpay/internal/adapter/storage/redis"
	"linkpay/internal/core/ports"
	"linkpay/internal/job"
	"linkpay/internal/service"
	"linkpay/pkg/logger"
	"linkpay/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// repositories is the storage backend selected by database.driver.
type repositories struct {
	merchants    ports.MerchantRepository
	users        ports.UserRepository
	links        ports.LinkRepository
	transactions ports.TransactionRepository
	requests     ports.RequestRepository
	reminders    ports.ReminderRepository
	audit        ports.AuditRepository
	transactor   ports.DBTransactor
	health       []ports.HealthChecker
	close        func()
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*repositories, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		store := memStorage.NewStore()
		return &repositories{
			merchants:    memStorage.NewMerchantRepo(store),
			users:        memStorage.NewUserRepo(store),
			links:        memStorage.NewLinkRepo(store),
			transactions: memStorage.NewTransactionRepo(store),
			requests:     memStorage.NewRequestRepo(store),
			reminders:    memStorage.NewReminderRepo(store),
			audit:        memStorage.NewAuditRepo(store),
			transactor:   store,
			close:        func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if cfg.AutoMigrate {
		if err := pgStorage.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		log.Info().Msg("Database migrations applied")
	}
	return &repositories{
		merchants:    pgStorage.NewMerchantRepo(pool),
		users:        pgStorage.NewUserRepo(pool),
		links:        pgStorage.NewLinkRepo(pool),
		transactions: pgStorage.NewTransactionRepo(pool),
		requests:     pgStorage.NewRequestRepo(pool),
		reminders:    pgStorage.NewReminderRepo(pool),
		audit:        pgStorage.NewAuditRepo(pool),
		transactor:   pgStorage.NewTransactor(pool),
		health:       []ports.HealthChecker{pgStorage.NewHealthCheck(pool)},
		close:        pool.Close,
	}, nil
}

func main() {
	cfg, err := config.Load(os.Getenv("LNK_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(logger.Options{
		Level:      cfg.Log.Level,
		Pretty:     cfg.Log.Pretty,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("driver", cfg.Database.Driver).
		Str("broker", cfg.Realtime.Broker).
		Msg("Starting linkpay")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	repos, err := openStorage(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise storage")
	}
	defer repos.close()

	// Redis backs PIN lockout, rate limits and cross-instance fan-out.
	var (
		pinLimiter  ports.PinAttemptLimiter
		rateLimiter middleware.Limiter = middleware.NewLocalLimiter(10 * time.Minute)
		health                         = repos.health
		bus         *redisStorage.EventBus
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		pinLimiter = redisStorage.NewPinAttemptStore(rdb, cfg.Pin.MaxAttempts, cfg.Pin.LockoutWindow)
		rateLimiter = redisStorage.NewRateLimitStore(rdb)
		health = append(health, redisStorage.NewHealthCheck(rdb))
		if cfg.Realtime.Broker == config.BrokerRedis {
			bus = redisStorage.NewEventBus(rdb, cfg.Realtime.Channel, log)
		}
	} else {
		log.Warn().Msg("Redis disabled: PIN lockout off, rate limits are per instance")
	}

	hub := realtime.NewHub(cfg.Realtime.SendBuffer, m, log)
	var events ports.EventPublisher = hub
	if bus != nil {
		events = bus
		go func() {
			if err := bus.Run(ctx, hub.Publish); err != nil {
				log.Error().Err(err).Msg("Event bus subscription ended")
			}
		}()
	}

	// Core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	verifier := service.NewHMACIdentityVerifier(cfg.OAuth.Secret, cfg.OAuth.Issuer, cfg.OAuth.Audience)
	gate := service.NewPinGate(repos.users, hashSvc, pinLimiter, m, log)

	// Business services
	identitySvc := service.NewIdentityService(
		repos.merchants, repos.users, repos.links, repos.requests, repos.reminders,
		hashSvc, tokenSvc, verifier, gate, repos.transactor, log,
	)
	ledgerSvc := service.NewLedgerService(
		repos.links, repos.transactions, repos.users, gate, repos.transactor, events, m, log,
	)
	requestSvc := service.NewRequestService(
		repos.requests, repos.links, repos.transactions, repos.merchants, repos.users,
		gate, encSvc, repos.transactor, events, m, log,
	)
	reminderSvc := service.NewReminderService(
		repos.reminders, repos.requests, repos.links, repos.merchants,
		service.FeedOptions{Window: cfg.Feed.Window, Limit: cfg.Feed.Limit}, events, log,
	)
	auditSvc := service.NewAuditService(repos.audit, log)

	sweeper := job.NewSweeper(repos.reminders, repos.requests, cfg.Sweeper.Interval, cfg.Sweeper.RequestRetention, m, log)
	go sweeper.Start(ctx)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		IdentitySvc:    identitySvc,
		LedgerSvc:      ledgerSvc,
		RequestSvc:     requestSvc,
		ReminderSvc:    reminderSvc,
		TokenSvc:       tokenSvc,
		RateLimiter:    rateLimiter,
		HealthCheckers: health,
		AuditSvc:       auditSvc,
		Realtime:       realtime.NewHandler(hub, tokenSvc, cfg.Realtime.WriteTimeout, cfg.Realtime.PingInterval, log),
		Metrics:        m,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")
	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
