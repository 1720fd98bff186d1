package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/forge/internal/config"
	"github.com/riskibarqy/forge/internal/domain/community"
	"github.com/riskibarqy/forge/internal/domain/jobscheduler"
	"github.com/riskibarqy/forge/internal/domain/storage"
	"github.com/riskibarqy/forge/internal/infrastructure/jobqueue"
	"github.com/riskibarqy/forge/internal/infrastructure/notifier"
	"github.com/riskibarqy/forge/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/forge/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/forge/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/forge/internal/interfaces/httpapi"
	"github.com/riskibarqy/forge/internal/observability"
	basecache "github.com/riskibarqy/forge/internal/platform/cache"
	"github.com/riskibarqy/forge/internal/platform/dbconn"
	idgen "github.com/riskibarqy/forge/internal/platform/id"
	"github.com/riskibarqy/forge/internal/platform/logging"
	"github.com/riskibarqy/forge/internal/platform/resilience"
	"github.com/riskibarqy/forge/internal/usecase"
	"github.com/sourcegraph/conc"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

const qstashTimeout = 10 * time.Second

// App holds the HTTP server and the background runners built from one config.
type App struct {
	Server       *http.Server
	Orchestrator *usecase.LifecycleOrchestrator
	Inbox        *usecase.InboxService

	cfg      config.Config
	logger   *logging.Logger
	db       *sqlx.DB
	notifier usecase.Notifier
}

type storageBackend struct {
	store      storage.Store
	configs    community.Repository
	dispatches jobscheduler.Repository
	db         *sqlx.DB
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	backend, err := openStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	configRepo := backend.configs
	if cfg.CacheEnabled {
		configRepo = cache.NewCommunityConfigRepository(configRepo, basecache.NewStore(cfg.CacheTTL))
	}

	jobQueue, err := newJobQueue(cfg, logger)
	if err != nil {
		closeDB(backend.db, logger)
		return nil, err
	}

	ids := idgen.NewUUIDGenerator()
	repos := backend.store.Repositories()
	configService := usecase.NewCommunityConfigService(configRepo, cfg.Community(), logger)
	events := newNotifier(cfg, configService, logger)
	accounting := usecase.NewAccountingService(backend.store, repos, ids, events, usecase.AccountingConfig{
		MaxAttempts: cfg.AccountingTxRetries,
	}, logger)
	lifecycle := usecase.NewLifecycleService(backend.store, repos, ids, events, logger)
	orchestrator := usecase.NewLifecycleOrchestrator(lifecycle, configService, backend.dispatches, usecase.LifecycleOrchestratorConfig{
		PollInterval: cfg.SchedulerPollInterval,
	}, logger)
	members := usecase.NewMemberService(backend.store, repos, accounting, configService, ids, logger)
	inboxService := usecase.NewInboxService(repos, accounting, configService, usecase.EnvelopeResolver{}, jobQueue, ids, usecase.InboxConfig{
		PollInterval: cfg.InboxPollInterval,
		BatchSize:    cfg.InboxBatchSize,
		Workers:      cfg.InboxWorkers,
		LeaseTimeout: cfg.InboxLeaseTimeout,
		PushEnabled:  cfg.QStashEnabled,
	}, logger)

	routerCfg := httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
	}
	if cfg.MetricsEnabled {
		routerCfg.Metrics = promhttp.Handler()
	}
	handler := httpapi.NewHandler(members, inboxService, configService, orchestrator, logger)

	return &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      httpapi.NewRouter(handler, routerCfg, logger),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		Orchestrator: orchestrator,
		Inbox:        inboxService,
		cfg:          cfg,
		logger:       logger,
		db:           backend.db,
		notifier:     events,
	}, nil
}

// RunWorkers blocks running the enabled background loops until ctx is done.
func (a *App) RunWorkers(ctx context.Context) {
	var wg conc.WaitGroup
	if a.cfg.SchedulerEnabled {
		a.logger.Info("lifecycle scheduler starting", "poll_interval", a.cfg.SchedulerPollInterval)
		wg.Go(func() { a.Orchestrator.Run(ctx) })
	}
	if a.cfg.InboxConsumerEnabled {
		a.logger.Info("inbox consumer starting",
			"poll_interval", a.cfg.InboxPollInterval,
			"workers", a.cfg.InboxWorkers,
		)
		wg.Go(func() { a.Inbox.Run(ctx) })
	}
	wg.Wait()
}

func (a *App) Close() {
	a.Inbox.Close()
	// Publish progress still waiting on the debounce timer.
	if flusher, ok := a.notifier.(interface{ Flush() }); ok {
		flusher.Flush()
	}
	closeDB(a.db, a.logger)
}

func openStorage(cfg config.Config, logger *logging.Logger) (storageBackend, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return storageBackend{
			store:      memory.NewStore(),
			configs:    memory.NewCommunityConfigRepository(),
			dispatches: memory.NewJobDispatchRepository(),
		}, nil
	}

	db, err := openPostgres(cfg)
	if err != nil {
		return storageBackend{}, err
	}
	logger.Info("postgres connected", "db_name", dbconn.Name(cfg.DBURL))
	return storageBackend{
		store:      postgres.NewStore(db),
		configs:    postgres.NewCommunityConfigRepository(db),
		dispatches: postgres.NewJobDispatchRepository(db),
		db:         db,
	}, nil
}

func openPostgres(cfg config.Config) (*sqlx.DB, error) {
	dsn := dbconn.NormalizeURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbconn.Name(dsn)),
		otelsql.WithQueryFormatter(dbconn.FormatQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	otelsql.ReportDBStatsMetrics(db.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func newJobQueue(cfg config.Config, logger *logging.Logger) (usecase.JobQueue, error) {
	if !cfg.QStashEnabled {
		return usecase.NewNoopJobQueue(), nil
	}
	publisher, err := jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
		BaseURL:          cfg.QStashBaseURL,
		Token:            cfg.QStashToken,
		TargetBaseURL:    cfg.QStashTargetBaseURL,
		Retries:          cfg.QStashRetries,
		InternalJobToken: cfg.InternalJobToken,
		Timeout:          qstashTimeout,
		CircuitBreaker:   observedCircuit(cfg.QStashCircuit, logger),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build qstash publisher: %w", err)
	}
	return publisher, nil
}

// newNotifier logs every event, posts to the chat webhook when configured and
// rate limits progress updates.
func newNotifier(cfg config.Config, communities notifier.CommunityConfigs, logger *logging.Logger) usecase.Notifier {
	targets := []usecase.Notifier{notifier.NewLog(logger)}
	if cfg.NotifierWebhookURL != "" {
		targets = append(targets, notifier.NewWebhook(notifier.WebhookConfig{
			URL:              cfg.NotifierWebhookURL,
			Username:         cfg.NotifierUsername,
			Timeout:          cfg.NotifierTimeout,
			PointsPerWorkout: cfg.PointsPerWorkout,
			Communities:      communities,
			CircuitBreaker:   observedCircuit(cfg.NotifierCircuit, logger),
		}, logger))
	}
	return notifier.NewDebounced(notifier.NewFanout(targets...), cfg.NotifierProgressDebounce, logger)
}

func observedCircuit(cfg resilience.CircuitBreakerConfig, logger *logging.Logger) resilience.CircuitBreakerConfig {
	cfg.OnStateChange = func(name string, from, to resilience.CircuitState) {
		observability.RecordCircuitState(name, string(to))
		logger.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
	}
	return cfg
}

func closeDB(db *sqlx.DB, logger *logging.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Warn("close postgres failed", "error", err)
	}
}
