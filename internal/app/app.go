package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/vocalia/internal/config"
	"github.com/riskibarqy/vocalia/internal/infrastructure/account/anubis"
	infralock "github.com/riskibarqy/vocalia/internal/infrastructure/lock"
	"github.com/riskibarqy/vocalia/internal/infrastructure/standings"
	"github.com/riskibarqy/vocalia/internal/interfaces/httpapi"
	idgen "github.com/riskibarqy/vocalia/internal/platform/id"
	"github.com/riskibarqy/vocalia/internal/platform/lock"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
	"github.com/riskibarqy/vocalia/internal/platform/resilience"
	"github.com/riskibarqy/vocalia/internal/usecase"
)

const standingsDrainTimeout = 5 * time.Second

// App owns the HTTP server and every resource it needs to release on shutdown.
type App struct {
	Server *http.Server

	logger  *logging.Logger
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	a := &App{logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = a.Shutdown(context.Background())
		}
	}()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if repos.close != nil {
		a.onClose("storage", repos.close)
	}

	locker, err := a.buildLocker(cfg, logger)
	if err != nil {
		return nil, err
	}

	notifier, err := buildStandingsNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	if c, isCloser := notifier.(interface{ Close() error }); isCloser {
		a.onClose("standings notifier", func(context.Context) error { return c.Close() })
	}
	dispatcher, err := usecase.NewStandingsDispatcher(notifier, cfg.StandingsWorkers, logger)
	if err != nil {
		return nil, err
	}
	a.onClose("standings dispatcher", func(context.Context) error {
		return dispatcher.Close(standingsDrainTimeout)
	})

	live := httpapi.NewLiveHub(cfg.CORSAllowedOrigins, logger)
	a.onClose("live hub", func(context.Context) error {
		live.Close()
		return nil
	})

	sessionSvc := usecase.NewMatchSessionService(repos.matches, repos.rosters, repos.ledger, locker, dispatcher, live, logger)
	rosterSvc := usecase.NewRosterService(repos.matches, repos.rosters, repos.players, locker, live)
	ledgerSvc := usecase.NewLedgerService(repos.matches, repos.rosters, repos.ledger, idgen.NewUUIDGenerator(), locker, live)

	anubisClient := anubis.NewClient(
		&http.Client{Timeout: cfg.AnubisTimeout},
		anubis.Config{
			BaseURL:        cfg.AnubisBaseURL,
			IntrospectPath: cfg.AnubisIntrospectURL,
			AdminKey:       cfg.AnubisAdminKey,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.AnubisCircuitEnabled,
				FailureThreshold: cfg.AnubisCircuitFailureCount,
				OpenTimeout:      cfg.AnubisCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.AnubisCircuitHalfOpenMaxReq,
			},
			CacheTTL:        cfg.CacheTTL,
			CacheMaxEntries: cfg.AnubisCacheMaxEntries,
		},
		logger,
	)

	handler := httpapi.NewHandler(sessionSvc, rosterSvc, ledgerSvc, live, logger)
	router := httpapi.NewRouter(handler, anubisClient, logger, httpapi.RouterConfig{
		ServiceName:        cfg.ServiceName,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		WriteRateLimit:     httpapi.NewWriteRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	a.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("app wired",
		"storage_driver", cfg.StorageDriver,
		"lock_driver", cfg.LockDriver,
		"standings_notifier", cfg.StandingsNotifier,
		"rate_limit_rps", cfg.RateLimitRPS,
	)

	ok = true
	return a, nil
}

// Shutdown stops the server, then releases resources in reverse order of creation.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.WarnContext(ctx, "release resource failed", "resource", c.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) buildLocker(cfg config.Config, logger *logging.Logger) (lock.Locker, error) {
	switch cfg.LockDriver {
	case config.LockRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		a.onClose("redis", func(context.Context) error { return client.Close() })
		return infralock.NewRedisLocker(client, infralock.RedisLockerConfig{
			KeyPrefix:     cfg.ServiceName + ":lock:",
			TTL:           cfg.LockTTL,
			RetryInterval: cfg.LockRetryInterval,
			WaitTimeout:   cfg.LockWaitTimeout,
		}, logger), nil
	default:
		if cfg.StorageDriver == config.StoragePostgres {
			logger.Warn("local match locks only serialize writers inside this process; run a single replica or set LOCK_DRIVER=redis",
				"storage_driver", cfg.StorageDriver,
			)
		}
		return lock.WithWaitTimeout(lock.NewKeyedMutex(), cfg.LockWaitTimeout), nil
	}
}

func buildStandingsNotifier(cfg config.Config, logger *logging.Logger) (usecase.StandingsNotifier, error) {
	switch cfg.StandingsNotifier {
	case config.NotifierAMQP:
		notifier, err := standings.NewAMQPNotifier(standings.AMQPNotifierConfig{
			URL:      cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create amqp standings notifier: %w", err)
		}
		return notifier, nil
	case config.NotifierQStash:
		return standings.NewQStashNotifier(standings.QStashNotifierConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			Timeout:          cfg.QStashTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.QStashCircuitEnabled,
				FailureThreshold: cfg.QStashCircuitFailureCount,
				OpenTimeout:      cfg.QStashCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
			},
		}, logger), nil
	default:
		return standings.NewLogNotifier(logger), nil
	}
}
