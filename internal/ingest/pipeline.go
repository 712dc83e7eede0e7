// Package ingest stores extracted records, one independent create per record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/headlines/internal/headlines"
	"github.com/JakeFAU/headlines/internal/metrics"
)

const defaultConcurrency = 4

// Config controls Pipeline behavior.
type Config struct {
	// Concurrency is the number of workers issuing store writes.
	Concurrency int
	// SkipExisting looks each link up before creating it and skips known links.
	// Off by default: repeated scrapes then produce duplicate articles.
	SkipExisting bool
}

// Pipeline fans records out to a fixed pool of writers and waits for every
// write to settle. A failed record is counted and logged; it never stops the batch.
type Pipeline struct {
	store  headlines.ArticleStore
	cfg    Config
	logger *zap.Logger
}

// New constructs a Pipeline.
func New(store headlines.ArticleStore, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{store: store, cfg: cfg, logger: logger}
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeFailed
	outcomeSkipped
)

// Run drains records and returns the batch tally. Cancelling ctx does not abort
// the batch; store calls run on a context detached from its cancellation.
func (p *Pipeline) Run(ctx context.Context, records iter.Seq[headlines.Record]) headlines.BatchResult {
	ctx = context.WithoutCancel(ctx)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result headlines.BatchResult
		seen   = newLinkSet()
		work   = make(chan headlines.Record)
	)
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			log := p.logger.With(zap.Int("worker", index))
			for rec := range work {
				out, err := p.ingest(ctx, rec, seen)
				mu.Lock()
				tally(&result, rec, out, err)
				mu.Unlock()
				if err != nil {
					log.Warn("record create failed", zap.String("link", rec.Link), zap.Error(err))
				}
			}
		}(i)
	}

	if records != nil {
		for rec := range records {
			work <- normalize(rec)
		}
	}
	close(work)
	wg.Wait()

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Link < result.Failures[j].Link
	})
	p.logger.Info("batch ingested",
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result
}

func (p *Pipeline) ingest(ctx context.Context, rec headlines.Record, seen *linkSet) (outcome, error) {
	if p.cfg.SkipExisting && rec.Link != "" {
		if !seen.claim(rec.Link) {
			return outcomeSkipped, nil
		}
		_, err := p.store.FindByLink(ctx, rec.Link)
		switch {
		case err == nil:
			return outcomeSkipped, nil
		case !errors.Is(err, headlines.ErrNotFound):
			return outcomeFailed, &headlines.RecordError{Link: rec.Link, Err: fmt.Errorf("lookup link: %w", err)}
		}
	}
	if _, err := p.store.Create(ctx, rec); err != nil {
		return outcomeFailed, &headlines.RecordError{Link: rec.Link, Err: err}
	}
	return outcomeCreated, nil
}

func tally(result *headlines.BatchResult, rec headlines.Record, out outcome, err error) {
	switch out {
	case outcomeCreated:
		result.Created++
		metrics.ObserveRecord(metrics.OutcomeCreated)
	case outcomeSkipped:
		result.Skipped++
		metrics.ObserveRecord(metrics.OutcomeSkipped)
	case outcomeFailed:
		result.Failed++
		metrics.ObserveRecord(metrics.OutcomeFailed)
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		result.Failures = append(result.Failures, headlines.RecordFailure{Link: rec.Link, Error: msg})
	}
}

// normalize trims the link and collapses whitespace runs in text fields.
func normalize(rec headlines.Record) headlines.Record {
	return headlines.Record{
		Title:   collapse(rec.Title),
		Summary: collapse(rec.Summary),
		Link:    strings.TrimSpace(rec.Link),
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// linkSet de-duplicates links within a single batch.
type linkSet struct {
	mu    sync.Mutex
	links map[string]struct{}
}

func newLinkSet() *linkSet {
	return &linkSet{links: make(map[string]struct{})}
}

func (s *linkSet) claim(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link]; ok {
		return false
	}
	s.links[link] = struct{}{}
	return true
}
