package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/headlines/internal/headlines"
)

const articleColumns = "id, title, summary, link, note_id, saved, created_at"

// ArticleStore persists articles in a single table. An empty note_id means no note.
type ArticleStore struct {
	pool  Pool
	table string
	idGen headlines.IDGenerator
	clock headlines.Clock
}

// Create inserts a saved article with no note.
func (s *ArticleStore) Create(ctx context.Context, rec headlines.Record) (headlines.Article, error) {
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
	query := fmt.Sprintf(`INSERT INTO %s (id, title, summary, link, created_at) VALUES ($1,$2,$3,$4,$5)`, s.table)
	if _, err := s.pool.Exec(ctx, query, article.ID, article.Title, article.Summary, article.Link, article.CreatedAt); err != nil {
		return headlines.Article{}, headlines.NewStorageError("create article", err)
	}
	return article, nil
}

// FindAll lists articles in insertion order.
func (s *ArticleStore) FindAll(ctx context.Context) ([]headlines.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY seq`, articleColumns, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, headlines.NewStorageError("list articles", err)
	}
	defer rows.Close()

	var out []headlines.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, headlines.NewStorageError("list articles", err)
		}
		out = append(out, article)
	}
	if err := rows.Err(); err != nil {
		return nil, headlines.NewStorageError("list articles", err)
	}
	return out, nil
}

// FindByID fetches one article.
func (s *ArticleStore) FindByID(ctx context.Context, id string) (headlines.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, articleColumns, s.table)
	article, err := scanArticle(s.pool.QueryRow(ctx, query, id))
	return article, s.rowError("find article", id, err)
}

// FindByLink returns the oldest article stored under link.
func (s *ArticleStore) FindByLink(ctx context.Context, link string) (headlines.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE link = $1 ORDER BY seq LIMIT 1`, articleColumns, s.table)
	article, err := scanArticle(s.pool.QueryRow(ctx, query, link))
	if errors.Is(err, pgx.ErrNoRows) {
		return headlines.Article{}, fmt.Errorf("article with link %q: %w", link, headlines.ErrNotFound)
	}
	return article, headlines.NewStorageError("find article by link", err)
}

// UpdateNoteRef sets note_id; an empty noteID clears it.
func (s *ArticleStore) UpdateNoteRef(ctx context.Context, articleID, noteID string) (headlines.Article, error) {
	query := fmt.Sprintf(`UPDATE %s SET note_id = $2 WHERE id = $1 RETURNING %s`, s.table, articleColumns)
	article, err := scanArticle(s.pool.QueryRow(ctx, query, articleID, noteID))
	return article, s.rowError("update note ref", articleID, err)
}

// ClearNoteRef empties note_id only where it still holds noteID.
func (s *ArticleStore) ClearNoteRef(ctx context.Context, articleID, noteID string) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET note_id = '' WHERE id = $1 AND note_id = $2`, s.table)
	tag, err := s.pool.Exec(ctx, query, articleID, noteID)
	if err != nil {
		return false, headlines.NewStorageError("clear note ref", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SoftDelete clears saved and the note reference.
func (s *ArticleStore) SoftDelete(ctx context.Context, articleID string) (headlines.Article, error) {
	query := fmt.Sprintf(`UPDATE %s SET saved = FALSE, note_id = '' WHERE id = $1 RETURNING %s`, s.table, articleColumns)
	article, err := scanArticle(s.pool.QueryRow(ctx, query, articleID))
	return article, s.rowError("soft delete article", articleID, err)
}

func (s *ArticleStore) rowError(op, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("article %s: %w", id, headlines.ErrNotFound)
	}
	return headlines.NewStorageError(op, err)
}

func scanArticle(row pgx.Row) (headlines.Article, error) {
	var a headlines.Article
	if err := row.Scan(&a.ID, &a.Title, &a.Summary, &a.Link, &a.NoteID, &a.Saved, &a.CreatedAt); err != nil {
		return headlines.Article{}, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
