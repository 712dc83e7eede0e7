// Package memory provides in-memory stores for development and testing.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/headlines/internal/headlines"
)

// ArticleStore keeps articles in insertion order behind a RWMutex.
type ArticleStore struct {
	mu       sync.RWMutex
	order    []string
	articles map[string]headlines.Article
	idGen    headlines.IDGenerator
	clock    headlines.Clock
}

// NewArticleStore constructs an ArticleStore.
func NewArticleStore(idGen headlines.IDGenerator, clock headlines.Clock) *ArticleStore {
	return &ArticleStore{
		articles: make(map[string]headlines.Article),
		idGen:    idGen,
		clock:    clock,
	}
}

// Create stores a new saved article with no note.
func (s *ArticleStore) Create(_ context.Context, rec headlines.Record) (headlines.Article, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return headlines.Article{}, headlines.NewStorageError("create article", err)
	}
	article := headlines.Article{
		ID:        id,
		Title:     rec.Title,
		Summary:   rec.Summary,
		Link:      rec.Link,
		Saved:     true,
		CreatedAt: s.clock.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.articles[id]; exists {
		return headlines.Article{}, headlines.NewStorageError("create article", errors.New("duplicate id "+id))
	}
	s.articles[id] = article
	s.order = append(s.order, id)
	return article, nil
}

// FindAll returns every article in insertion order.
func (s *ArticleStore) FindAll(_ context.Context) ([]headlines.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]headlines.Article, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.articles[id])
	}
	return out, nil
}

// FindByID fetches an article by ID.
func (s *ArticleStore) FindByID(_ context.Context, id string) (headlines.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	article, ok := s.articles[id]
	if !ok {
		return headlines.Article{}, articleNotFound(id)
	}
	return article, nil
}

// FindByLink returns the oldest article stored under link.
func (s *ArticleStore) FindByLink(_ context.Context, link string) (headlines.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if a := s.articles[id]; a.Link == link {
			return a, nil
		}
	}
	return headlines.Article{}, fmt.Errorf("article with link %q: %w", link, headlines.ErrNotFound)
}

// UpdateNoteRef sets or clears the note reference.
func (s *ArticleStore) UpdateNoteRef(_ context.Context, articleID, noteID string) (headlines.Article, error) {
	return s.update(articleID, func(a *headlines.Article) {
		a.NoteID = noteID
	})
}

// ClearNoteRef drops the note reference if it is still noteID.
func (s *ArticleStore) ClearNoteRef(_ context.Context, articleID, noteID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[articleID]
	if !ok || article.NoteID != noteID {
		return false, nil
	}
	article.NoteID = ""
	s.articles[articleID] = article
	return true, nil
}

// SoftDelete marks the article unsaved and drops its note reference.
func (s *ArticleStore) SoftDelete(_ context.Context, articleID string) (headlines.Article, error) {
	return s.update(articleID, func(a *headlines.Article) {
		a.Saved = false
		a.NoteID = ""
	})
}

func (s *ArticleStore) update(id string, mutate func(*headlines.Article)) (headlines.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	article, ok := s.articles[id]
	if !ok {
		return headlines.Article{}, articleNotFound(id)
	}
	mutate(&article)
	s.articles[id] = article
	return article, nil
}

func articleNotFound(id string) error {
	return fmt.Errorf("article %s: %w", id, headlines.ErrNotFound)
}
