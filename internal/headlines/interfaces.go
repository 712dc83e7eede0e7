package headlines

import (
	"context"
	"io"
	"time"
)

// ArticleStore persists Articles.
type ArticleStore interface {
	Create(ctx context.Context, rec Record) (Article, error)
	FindAll(ctx context.Context) ([]Article, error)
	FindByID(ctx context.Context, id string) (Article, error)
	FindByLink(ctx context.Context, link string) (Article, error)
	// UpdateNoteRef sets the note reference; an empty noteID clears it.
	UpdateNoteRef(ctx context.Context, articleID, noteID string) (Article, error)
	// ClearNoteRef clears the note reference only while it still equals
	// noteID, as one conditional write, and reports whether it did.
	ClearNoteRef(ctx context.Context, articleID, noteID string) (bool, error)
	// SoftDelete marks the article unsaved and clears its note reference.
	SoftDelete(ctx context.Context, articleID string) (Article, error)
}

// NoteStore persists Notes.
type NoteStore interface {
	Create(ctx context.Context, fields NoteFields) (Note, error)
	FindAll(ctx context.Context) ([]Note, error)
	FindByID(ctx context.Context, id string) (Note, error)
	DeleteByID(ctx context.Context, id string) error
}

// Fetcher retrieves the raw markup behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Document, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces entity IDs.
type IDGenerator interface {
	NewID() (string, error)
}
