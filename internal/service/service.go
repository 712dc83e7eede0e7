// Package service is the application facade used by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/headlines/internal/headlines"
)

// Scraper runs one scrape of the configured source.
type Scraper interface {
	Run(ctx context.Context) (headlines.BatchResult, error)
}

// Associator links and unlinks notes.
type Associator interface {
	Attach(ctx context.Context, articleID string, fields headlines.NoteFields) (headlines.Article, error)
	Detach(ctx context.Context, noteID, articleID string) (headlines.DetachResult, error)
}

// Service exposes the operations clients can perform.
type Service struct {
	scraper  Scraper
	assoc    Associator
	articles headlines.ArticleStore
	notes    headlines.NoteStore
	logger   *zap.Logger
}

// New constructs a Service.
func New(
	scraper Scraper,
	assoc Associator,
	articles headlines.ArticleStore,
	notes headlines.NoteStore,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scraper:  scraper,
		assoc:    assoc,
		articles: articles,
		notes:    notes,
		logger:   logger.Named("service"),
	}
}

// TriggerScrape runs a scrape to completion.
func (s *Service) TriggerScrape(ctx context.Context) (headlines.BatchResult, error) {
	return s.scraper.Run(ctx)
}

// ListArticles returns every stored article, saved or not.
func (s *Service) ListArticles(ctx context.Context) ([]headlines.Article, error) {
	articles, err := s.articles.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if articles == nil {
		articles = []headlines.Article{}
	}
	return articles, nil
}

// ListNotes returns every stored note.
func (s *Service) ListNotes(ctx context.Context) ([]headlines.Note, error) {
	notes, err := s.notes.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []headlines.Note{}
	}
	return notes, nil
}

// GetArticle fetches one article. With populate set, the referenced note is
// embedded; a dangling reference is logged and left unpopulated.
func (s *Service) GetArticle(ctx context.Context, id string, populate bool) (headlines.PopulatedArticle, error) {
	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return headlines.PopulatedArticle{}, err
	}
	out := headlines.PopulatedArticle{Article: article}
	if !populate || !article.HasNote() {
		return out, nil
	}
	note, err := s.notes.FindByID(ctx, article.NoteID)
	switch {
	case errors.Is(err, headlines.ErrNotFound):
		s.logger.Warn("article references missing note",
			zap.String("article_id", id),
			zap.String("note_id", article.NoteID),
		)
	case err != nil:
		return headlines.PopulatedArticle{}, fmt.Errorf("populate note: %w", err)
	default:
		out.Note = &note
	}
	return out, nil
}

// AttachNote creates a note and links it to the article.
func (s *Service) AttachNote(ctx context.Context, articleID string, fields headlines.NoteFields) (headlines.Article, error) {
	return s.assoc.Attach(ctx, articleID, fields)
}

// DetachNote deletes the note and clears the article's reference.
func (s *Service) DetachNote(ctx context.Context, noteID, articleID string) (headlines.DetachResult, error) {
	return s.assoc.Detach(ctx, noteID, articleID)
}

// SoftDeleteArticle marks the article unsaved and clears its note reference.
func (s *Service) SoftDeleteArticle(ctx context.Context, articleID string) (headlines.Article, error) {
	return s.articles.SoftDelete(ctx, articleID)
}
