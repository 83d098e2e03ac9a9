// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/syllabus-crawler/internal/artifact"
	"github.com/JakeFAU/syllabus-crawler/internal/assemble"
	"github.com/JakeFAU/syllabus-crawler/internal/catalog"
	"github.com/JakeFAU/syllabus-crawler/internal/catalogsync"
	"github.com/JakeFAU/syllabus-crawler/internal/config"
	"github.com/JakeFAU/syllabus-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/syllabus-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/syllabus-crawler/internal/markup"
	"github.com/JakeFAU/syllabus-crawler/internal/metrics"
	"github.com/JakeFAU/syllabus-crawler/internal/normalize"
	"github.com/JakeFAU/syllabus-crawler/internal/pipeline"
	"github.com/JakeFAU/syllabus-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/syllabus-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/syllabus-crawler/internal/storage"
	"github.com/JakeFAU/syllabus-crawler/internal/storage/gcs"
	"github.com/JakeFAU/syllabus-crawler/internal/storage/local"
	"github.com/JakeFAU/syllabus-crawler/internal/storage/memory"
	"github.com/JakeFAU/syllabus-crawler/internal/storage/postgres"
	"github.com/JakeFAU/syllabus-crawler/internal/telemetry"
)

// BlobStore is the storage surface the commands need.
type BlobStore interface {
	storage.BlobStore
	storage.VersionedStore
}

// App holds the shared, long-lived services for one CLI invocation.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    BlobStore
	notifier pipeline.Notifier
	table    *markup.Table
	metrics  *http.Server
	closers  []func() error
}

// New builds every service named by cfg. It fails fast when a backend
// cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	table, err := loadTable(cfg.Crawler.SelectorsFile)
	if err != nil {
		return nil, err
	}
	a.table = table

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return tp.Shutdown(context.Background()) })

	if err := a.initStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initNotifier(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr)
	}
	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("notifications", a.notifier != nil))
	return a, nil
}

func loadTable(path string) (*markup.Table, error) {
	if path == "" {
		return markup.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read selectors file: %w", err)
	}
	table, err := markup.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse selectors file %s: %w", path, err)
	}
	return table, nil
}

func (a *App) initStorage(ctx context.Context) error {
	sc := a.cfg.Storage
	switch sc.Backend {
	case config.BackendGCS:
		var key []byte
		if sc.SignerKeyFile != "" {
			var err error
			if key, err = os.ReadFile(sc.SignerKeyFile); err != nil {
				return fmt.Errorf("read signer key: %w", err)
			}
		}
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: sc.GCSBucket, SignerEmail: sc.SignerEmail, PrivateKey: key})
		if err != nil {
			return fmt.Errorf("init gcs store: %w", err)
		}
		a.logger.Info("using gcs storage", zap.String("bucket", sc.GCSBucket))
		a.store = store
	case config.BackendLocal:
		store, err := local.New(local.Config{BaseDir: sc.LocalDir})
		if err != nil {
			return fmt.Errorf("init local store: %w", err)
		}
		a.logger.Info("using local storage", zap.String("dir", sc.LocalDir))
		a.store = store
	case config.BackendMemory:
		a.logger.Info("using in-memory storage; artifacts are discarded on exit")
		a.store = memory.NewBlobStore()
	default:
		return fmt.Errorf("unknown storage backend: %s", sc.Backend)
	}
	return nil
}

func (a *App) initNotifier(ctx context.Context) error {
	ps := a.cfg.PubSub
	if ps.TopicName == "" {
		return nil
	}
	client, err := gpubsub.NewClient(ctx, ps.ProjectID)
	if err != nil {
		return fmt.Errorf("create pubsub client: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	pub, err := pubsub.Open(ctx, client, ps.TopicName)
	if err != nil {
		return fmt.Errorf("init notifier: %w", err)
	}
	a.closers = append(a.closers, func() error { pub.Close(); return nil })
	a.logger.Info("publishing run notifications", zap.String("topic", ps.TopicName))
	a.notifier = pub
	return nil
}

func (a *App) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	a.logger.Info("starting metrics server", zap.String("addr", addr))
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the configured artifact store.
func (a *App) Store() BlobStore { return a.store }

// NewEngine wires a crawl engine from the crawler and http sections.
func (a *App) NewEngine(opts ...crawler.Option) (*crawler.Engine, error) {
	n, err := normalize.New(normalize.DefaultVocabulary(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("init normalizer: %w", err)
	}
	asm, err := assemble.New(a.table, n, a.logger)
	if err != nil {
		return nil, fmt.Errorf("init assembler: %w", err)
	}
	strategy, err := crawler.ParseStrategy(a.cfg.Crawler.Strategy)
	if err != nil {
		return nil, err
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		Timeout:             a.cfg.HTTPTimeout(),
		MaxIdleConnsPerHost: a.cfg.HTTP.MaxIdleConnsPerHost,
	})
	initial, ceiling := a.cfg.Backoff()
	defaults := []crawler.Option{
		crawler.WithLogger(a.logger),
		crawler.WithRetryPolicy(crawler.NewRetryPolicy(a.cfg.HTTP.MaxAttempts, initial, ceiling)),
	}
	if a.cfg.Crawler.RateLimitRPS > 0 {
		defaults = append(defaults, crawler.WithRateLimiter(ratelimit.New(ratelimit.Config{
			RPS:   a.cfg.Crawler.RateLimitRPS,
			Burst: a.cfg.Crawler.RateLimitBurst,
		})))
	}
	return crawler.New(
		crawler.Config{
			BaseURL:  a.cfg.Crawler.BaseURL,
			Workers:  a.cfg.Crawler.Workers,
			Strategy: strategy,
			Year:     a.cfg.Crawler.Year,
		},
		fetcher,
		asm,
		catalog.NewParser(a.table),
		append(defaults, opts...)...,
	)
}

// NewArtifactPublisher wires the artifact publisher to the store.
func (a *App) NewArtifactPublisher() (*artifact.Publisher, error) {
	return artifact.New(a.store, artifact.Config{
		Prefix:       a.cfg.Storage.Prefix,
		SignedURLTTL: a.cfg.SignedURLTTL(),
	}, artifact.WithLogger(a.logger))
}

// NewRunner wires a department pipeline around engine.
func (a *App) NewRunner(engine pipeline.Crawler) (*pipeline.Runner, error) {
	pub, err := a.NewArtifactPublisher()
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{pipeline.WithLogger(a.logger)}
	if a.notifier != nil {
		opts = append(opts, pipeline.WithNotifier(a.notifier))
	}
	return pipeline.New(engine, pub, pipeline.Config{
		Topic:           a.cfg.PubSub.TopicName,
		MaxFailureRatio: a.cfg.Crawler.MaxFailureRatio,
		Timeout:         a.cfg.RunTimeout(),
	}, opts...)
}

// NewSyncer connects to the course database and wires a catalog syncer.
// The returned close func releases the pool.
func (a *App) NewSyncer(ctx context.Context) (*catalogsync.Syncer, func(), error) {
	db, err := postgres.NewCourseStore(ctx, postgres.CourseStoreConfig{
		DSN:      a.cfg.DB.DSN,
		Table:    a.cfg.DB.Table,
		MaxConns: int32(a.cfg.DB.MaxConns),
		MinConns: int32(a.cfg.DB.MinConns),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect course store: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	pub, err := a.NewArtifactPublisher()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	syncer, err := catalogsync.New(a.store, db, pub.Key, a.logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return syncer, db.Close, nil
}

// Close shuts down every service in reverse order of creation.
func (a *App) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn("error stopping metrics server", zap.Error(err))
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
	// Sync fails on console outputs; nothing useful can be done about it.
	_ = a.logger.Sync()
}
