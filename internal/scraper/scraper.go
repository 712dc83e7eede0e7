// Package scraper runs one scrape of the configured listing page: fetch,
// archive, extract, ingest and notify.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/headlines/internal/extract"
	"github.com/JakeFAU/headlines/internal/headlines"
	"github.com/JakeFAU/headlines/internal/ingest"
	"github.com/JakeFAU/headlines/internal/metrics"
)

// Config names the source page and the optional side outputs.
type Config struct {
	SourceURL string
	// ArchivePrefix is prepended to archived page paths.
	ArchivePrefix string
	// Topic receives the BatchResult when a Publisher is configured.
	Topic string
}

// Deps are the collaborators a Scraper needs. Archive and Publisher are optional.
type Deps struct {
	Fetcher   headlines.Fetcher
	Extractor *extract.Extractor
	Pipeline  *ingest.Pipeline
	Archive   headlines.BlobStore
	Hasher    headlines.Hasher
	Publisher headlines.Publisher
	Clock     headlines.Clock
}

// Scraper coordinates a single scrape run.
type Scraper struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

// New validates the configuration and dependencies.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Scraper, error) {
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("source url is required")
	}
	if deps.Fetcher == nil || deps.Extractor == nil || deps.Pipeline == nil || deps.Clock == nil {
		return nil, fmt.Errorf("fetcher, extractor, pipeline and clock are required")
	}
	if deps.Archive != nil && deps.Hasher == nil {
		return nil, fmt.Errorf("archive requires a hasher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{cfg: cfg, deps: deps, logger: logger.Named("scraper")}, nil
}

// SourceURL returns the page this scraper fetches.
func (s *Scraper) SourceURL() string {
	return s.cfg.SourceURL
}

// Run fetches the source page and ingests every extracted record. A fetch or
// parse failure aborts the run; per-record failures are reported in the
// result. Once started the run ignores ctx cancellation.
func (s *Scraper) Run(ctx context.Context) (headlines.BatchResult, error) {
	ctx = context.WithoutCancel(ctx)
	started := s.deps.Clock.Now()
	log := s.logger.With(zap.String("source_url", s.cfg.SourceURL))

	doc, err := s.deps.Fetcher.Fetch(ctx, s.cfg.SourceURL)
	if err != nil {
		metrics.ObserveScrape(s.cfg.SourceURL, metrics.ScrapeFetchFailed, 0, s.deps.Clock.Now().Sub(started))
		log.Error("fetch source page", zap.Error(err))
		return headlines.BatchResult{}, err
	}

	archiveURI := s.archive(ctx, log, started, doc.Body)

	records, err := s.deps.Extractor.Extract(doc.Body)
	if err != nil {
		metrics.ObserveScrape(s.cfg.SourceURL, metrics.ScrapeParseFailed, len(doc.Body), s.deps.Clock.Now().Sub(started))
		log.Error("parse source page", zap.Error(err))
		return headlines.BatchResult{}, &headlines.FetchError{
			URL:        s.cfg.SourceURL,
			StatusCode: doc.StatusCode,
			Err:        fmt.Errorf("parse document: %w", err),
		}
	}

	result := s.deps.Pipeline.Run(ctx, records)
	result.SourceURL = s.cfg.SourceURL
	result.ArchiveURI = archiveURI
	result.StartedAt = started
	result.FinishedAt = s.deps.Clock.Now()

	s.publish(ctx, log, result)
	metrics.ObserveScrape(s.cfg.SourceURL, metrics.ScrapeSucceeded, len(doc.Body), result.FinishedAt.Sub(started))
	log.Info("scrape finished",
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.String("archive_uri", archiveURI),
	)
	return result, nil
}

// archive writes the raw page under prefix/date/digest.html. Failures are
// logged and yield an empty URI.
func (s *Scraper) archive(ctx context.Context, log *zap.Logger, at time.Time, body []byte) string {
	if s.deps.Archive == nil {
		return ""
	}
	digest, err := s.deps.Hasher.Hash(body)
	if err != nil {
		log.Warn("hash page for archive", zap.Error(err))
		return ""
	}
	name := path.Join(strings.Trim(s.cfg.ArchivePrefix, "/"), at.UTC().Format("2006-01-02"), digest+".html")
	uri, err := s.deps.Archive.PutObject(ctx, name, "text/html", bytes.NewReader(body))
	if err != nil {
		log.Warn("archive page", zap.String("path", name), zap.Error(err))
		return ""
	}
	return uri
}

func (s *Scraper) publish(ctx context.Context, log *zap.Logger, result headlines.BatchResult) {
	if s.deps.Publisher == nil || s.cfg.Topic == "" {
		return
	}
	id, err := s.deps.Publisher.Publish(ctx, s.cfg.Topic, result)
	if err != nil {
		log.Warn("publish batch result", zap.String("topic", s.cfg.Topic), zap.Error(err))
		return
	}
	log.Debug("published batch result", zap.String("topic", s.cfg.Topic), zap.String("message_id", id))
}
