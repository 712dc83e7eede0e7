// Package app builds the long-lived services from configuration and owns
// their shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/headlines/internal/api"
	"github.com/JakeFAU/headlines/internal/association"
	"github.com/JakeFAU/headlines/internal/clock/system"
	"github.com/JakeFAU/headlines/internal/config"
	"github.com/JakeFAU/headlines/internal/extract"
	collyfetcher "github.com/JakeFAU/headlines/internal/fetcher/colly"
	"github.com/JakeFAU/headlines/internal/hash/sha256"
	"github.com/JakeFAU/headlines/internal/headlines"
	"github.com/JakeFAU/headlines/internal/id/uuid"
	"github.com/JakeFAU/headlines/internal/ingest"
	"github.com/JakeFAU/headlines/internal/metrics"
	kafkapublisher "github.com/JakeFAU/headlines/internal/publisher/kafka"
	pubmemory "github.com/JakeFAU/headlines/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/headlines/internal/publisher/pubsub"
	"github.com/JakeFAU/headlines/internal/scraper"
	"github.com/JakeFAU/headlines/internal/service"
	"github.com/JakeFAU/headlines/internal/storage/gcs"
	"github.com/JakeFAU/headlines/internal/storage/local"
	"github.com/JakeFAU/headlines/internal/storage/memory"
	mongostore "github.com/JakeFAU/headlines/internal/storage/mongo"
	pgstore "github.com/JakeFAU/headlines/internal/storage/postgres"
	s3store "github.com/JakeFAU/headlines/internal/storage/s3"
)

// App holds the wired service, its HTTP server and every handle that needs
// closing on shutdown.
type App struct {
	Service *service.Service
	server  *api.Server
	logger  *zap.Logger
	closers []func(context.Context) error
}

type stores struct {
	articles headlines.ArticleStore
	notes    headlines.NoteStore
	checks   map[string]api.ReadinessCheck
}

// New connects the configured backends and assembles the service. On error,
// anything already opened is closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	a := &App{logger: logger}
	defer func() {
		if err != nil {
			if closeErr := a.Close(context.Background()); closeErr != nil {
				logger.Warn("close after failed init", zap.Error(closeErr))
			}
		}
	}()

	idGen := uuid.New()
	clock := system.New()

	st, err := a.buildStores(ctx, cfg, idGen, clock)
	if err != nil {
		return nil, err
	}
	archive, err := a.buildArchive(ctx, cfg)
	if err != nil {
		return nil, err
	}
	publisher, err := a.buildPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	extractor, err := extract.New(extract.Config{
		ContainerSelector: cfg.Scrape.ContainerSelector,
		TitleSelector:     cfg.Scrape.TitleSelector,
		SummarySelector:   cfg.Scrape.SummarySelector,
		LinkSelector:      cfg.Scrape.LinkSelector,
		Origin:            cfg.Scrape.Origin,
	})
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Scrape.UserAgent,
		RespectRobots: cfg.Scrape.RespectRobots,
		Timeout:       cfg.ScrapeTimeout(),
	}, logger)
	pipeline := ingest.New(st.articles, ingest.Config{
		Concurrency:  cfg.Ingest.Concurrency,
		SkipExisting: cfg.Ingest.SkipExisting,
	}, logger.Named("ingest"))

	deps := scraper.Deps{
		Fetcher:   fetcher,
		Extractor: extractor,
		Pipeline:  pipeline,
		Publisher: publisher,
		Clock:     clock,
	}
	if archive != nil {
		deps.Archive = archive
		deps.Hasher = sha256.New()
	}
	scr, err := scraper.New(scraper.Config{
		SourceURL:     cfg.Scrape.SourceURL,
		ArchivePrefix: cfg.Archive.Prefix,
		Topic:         cfg.PubSub.Topic,
	}, deps, logger)
	if err != nil {
		return nil, fmt.Errorf("build scraper: %w", err)
	}

	assoc := association.New(st.articles, st.notes, logger)
	a.Service = service.New(scr, assoc, st.articles, st.notes, logger)
	a.server = api.NewServer(a.Service, api.Options{
		RequestTimeout: cfg.RequestTimeout(),
		Checks:         st.checks,
	}, logger)

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("archive", cfg.Archive.Backend),
		zap.Bool("publish", publisher != nil),
		zap.String("source_url", cfg.Scrape.SourceURL),
	)
	return a, nil
}

// TriggerScrape runs one scrape through the service.
func (a *App) TriggerScrape(ctx context.Context) (headlines.BatchResult, error) {
	return a.Service.TriggerScrape(ctx)
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Close releases every opened handle in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *App) buildStores(
	ctx context.Context,
	cfg config.Config,
	idGen headlines.IDGenerator,
	clock headlines.Clock,
) (stores, error) {
	switch cfg.Storage.Backend {
	case config.BackendMongo:
		client, err := mongostore.Connect(ctx, mongostore.Config{
			URI:                cfg.Mongo.URI,
			Database:           cfg.Mongo.Database,
			ArticlesCollection: cfg.Mongo.ArticlesCollection,
			NotesCollection:    cfg.Mongo.NotesCollection,
		})
		if err != nil {
			return stores{}, err
		}
		a.onClose(client.Close)
		if err := client.EnsureIndexes(ctx); err != nil {
			return stores{}, err
		}
		return stores{
			articles: client.Articles(idGen, clock),
			notes:    client.Notes(idGen, clock),
			checks:   map[string]api.ReadinessCheck{"mongo": client.Ping},
		}, nil
	case config.BackendPostgres:
		db, err := pgstore.Open(ctx, pgstore.Config{
			DSN:           cfg.Postgres.DSN,
			MaxConns:      cfg.Postgres.MaxConns,
			ArticlesTable: cfg.Postgres.ArticlesTable,
			NotesTable:    cfg.Postgres.NotesTable,
		})
		if err != nil {
			return stores{}, err
		}
		a.onClose(func(context.Context) error { db.Close(); return nil })
		if err := db.EnsureSchema(ctx); err != nil {
			return stores{}, err
		}
		return stores{
			articles: db.Articles(idGen, clock),
			notes:    db.Notes(idGen, clock),
			checks:   map[string]api.ReadinessCheck{"postgres": db.Ping},
		}, nil
	default:
		return stores{
			articles: memory.NewArticleStore(idGen, clock),
			notes:    memory.NewNoteStore(idGen, clock),
		}, nil
	}
}

func (a *App) buildArchive(ctx context.Context, cfg config.Config) (headlines.BlobStore, error) {
	switch cfg.Archive.Backend {
	case config.ArchiveMemory:
		return memory.NewBlobStore(), nil
	case config.ArchiveLocal:
		store, err := local.New(local.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("build local archive: %w", err)
		}
		return store, nil
	case config.ArchiveGCS:
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.onClose(func(context.Context) error { return client.Close() })
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("build gcs archive: %w", err)
		}
		return store, nil
	case config.ArchiveS3:
		client, err := s3store.NewClient(ctx, s3store.Config{
			Bucket:   cfg.Archive.S3Bucket,
			Region:   cfg.Archive.S3Region,
			Endpoint: cfg.Archive.S3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		store, err := s3store.New(client, cfg.Archive.S3Bucket)
		if err != nil {
			return nil, fmt.Errorf("build s3 archive: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

func (a *App) buildPublisher(ctx context.Context, cfg config.Config) (headlines.Publisher, error) {
	if cfg.PubSub.Topic == "" {
		return nil, nil
	}
	switch cfg.PubSub.Backend {
	case config.PubSubMemory:
		return pubmemory.New(a.logger), nil
	case config.PubSubKafka:
		producer, err := kafkapublisher.NewProducer(kafkapublisher.Config{
			Brokers:  cfg.PubSub.KafkaBrokers,
			ClientID: "headlines",
		})
		if err != nil {
			return nil, err
		}
		pub := kafkapublisher.New(producer)
		a.onClose(func(context.Context) error { return pub.Close() })
		return pub, nil
	}
	client, err := pubsubpublisher.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, err
	}
	pub := pubsubpublisher.New(client)
	a.onClose(func(context.Context) error { return pub.Close() })
	return pub, nil
}
