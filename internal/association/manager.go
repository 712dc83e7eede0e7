// Package association links notes to articles. The two writes of each
// operation are not atomic: a failed second step leaves an orphaned note
// (attach) or a dangling reference (detach), and both are logged. Detach
// clears the reference with a conditional write, so an attach that lands
// between its delete and its clear keeps the newer note.
package association

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/headlines/internal/headlines"
	"github.com/JakeFAU/headlines/internal/metrics"
)

// Manager coordinates the note and article stores.
type Manager struct {
	articles headlines.ArticleStore
	notes    headlines.NoteStore
	logger   *zap.Logger
}

// New constructs a Manager.
func New(articles headlines.ArticleStore, notes headlines.NoteStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{articles: articles, notes: notes, logger: logger.Named("association")}
}

// Attach creates a note from fields and points the article at it. A note the
// article referenced before is left in the note store.
func (m *Manager) Attach(ctx context.Context, articleID string, fields headlines.NoteFields) (headlines.Article, error) {
	article, err := m.attach(ctx, articleID, fields)
	metrics.ObserveNote("attach", err)
	return article, err
}

func (m *Manager) attach(ctx context.Context, articleID string, fields headlines.NoteFields) (headlines.Article, error) {
	fields = fields.Clone()
	if err := fields.NormalizeNumbers(); err != nil {
		return headlines.Article{}, err
	}
	if err := fields.Validate(); err != nil {
		return headlines.Article{}, err
	}
	current, err := m.articles.FindByID(ctx, articleID)
	if err != nil {
		return headlines.Article{}, fmt.Errorf("load article: %w", err)
	}
	note, err := m.notes.Create(ctx, fields)
	if err != nil {
		return headlines.Article{}, fmt.Errorf("create note: %w", err)
	}
	log := m.logger.With(zap.String("article_id", articleID), zap.String("note_id", note.ID))
	if current.HasNote() {
		log.Info("replacing note reference", zap.String("previous_note_id", current.NoteID))
	}
	article, err := m.articles.UpdateNoteRef(ctx, articleID, note.ID)
	if err != nil {
		log.Warn("note orphaned: article reference not set", zap.Error(err))
		return headlines.Article{}, fmt.Errorf("link note: %w", err)
	}
	log.Debug("note attached")
	return article, nil
}

// Detach deletes the note and then clears the article's reference to it. The
// reference is only cleared after the delete succeeds, and only when the
// article still points at this note.
func (m *Manager) Detach(ctx context.Context, noteID, articleID string) (headlines.DetachResult, error) {
	res, err := m.detach(ctx, noteID, articleID)
	metrics.ObserveNote("detach", err)
	return res, err
}

func (m *Manager) detach(ctx context.Context, noteID, articleID string) (headlines.DetachResult, error) {
	article, err := m.articles.FindByID(ctx, articleID)
	if err != nil {
		return headlines.DetachResult{}, fmt.Errorf("load article: %w", err)
	}
	if err := m.notes.DeleteByID(ctx, noteID); err != nil {
		return headlines.DetachResult{}, fmt.Errorf("delete note: %w", err)
	}
	log := m.logger.With(zap.String("article_id", articleID), zap.String("note_id", noteID))
	cleared, err := m.articles.ClearNoteRef(ctx, articleID, noteID)
	if err != nil {
		log.Warn("dangling note reference: note deleted but article not updated", zap.Error(err))
		return headlines.DetachResult{}, fmt.Errorf("unlink note: %w", err)
	}
	if !cleared {
		log.Info("deleted note was not referenced by article", zap.String("referenced_note_id", article.NoteID))
	}
	log.Debug("note detached")
	return headlines.DetachResult{Status: headlines.DetachStatusDeleted}, nil
}
