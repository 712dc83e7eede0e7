package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/headlines/internal/headlines"
)

// NoteStore persists notes with their fields as JSONB.
type NoteStore struct {
	pool  Pool
	table string
	idGen headlines.IDGenerator
	clock headlines.Clock
}

// Create inserts a note.
func (s *NoteStore) Create(ctx context.Context, fields headlines.NoteFields) (headlines.Note, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return headlines.Note{}, headlines.NewStorageError("create note", err)
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return headlines.Note{}, fmt.Errorf("marshal note fields: %w", err)
	}
	note := headlines.Note{ID: id, Fields: fields.Clone(), CreatedAt: s.clock.Now()}
	query := fmt.Sprintf(`INSERT INTO %s (id, fields, created_at) VALUES ($1,$2,$3)`, s.table)
	if _, err := s.pool.Exec(ctx, query, note.ID, payload, note.CreatedAt); err != nil {
		return headlines.Note{}, headlines.NewStorageError("create note", err)
	}
	return note, nil
}

// FindAll lists notes in insertion order.
func (s *NoteStore) FindAll(ctx context.Context) ([]headlines.Note, error) {
	query := fmt.Sprintf(`SELECT id, fields, created_at FROM %s ORDER BY seq`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, headlines.NewStorageError("list notes", err)
	}
	defer rows.Close()

	var out []headlines.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, headlines.NewStorageError("list notes", err)
		}
		out = append(out, note)
	}
	if err := rows.Err(); err != nil {
		return nil, headlines.NewStorageError("list notes", err)
	}
	return out, nil
}

// FindByID fetches one note.
func (s *NoteStore) FindByID(ctx context.Context, id string) (headlines.Note, error) {
	query := fmt.Sprintf(`SELECT id, fields, created_at FROM %s WHERE id = $1`, s.table)
	note, err := scanNote(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return headlines.Note{}, fmt.Errorf("note %s: %w", id, headlines.ErrNotFound)
	}
	return note, headlines.NewStorageError("find note", err)
}

// DeleteByID removes a note.
func (s *NoteStore) DeleteByID(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return headlines.NewStorageError("delete note", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("note %s: %w", id, headlines.ErrNotFound)
	}
	return nil
}

func scanNote(row pgx.Row) (headlines.Note, error) {
	var (
		n   headlines.Note
		raw []byte
	)
	if err := row.Scan(&n.ID, &raw, &n.CreatedAt); err != nil {
		return headlines.Note{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n.Fields); err != nil {
		return headlines.Note{}, fmt.Errorf("decode note fields: %w", err)
	}
	if err := n.Fields.NormalizeNumbers(); err != nil {
		return headlines.Note{}, fmt.Errorf("decode note fields: %w", err)
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return n, nil
}
