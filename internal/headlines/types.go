package headlines

import (
	"net/http"
	"time"
)

// Record is one extracted article candidate before storage.
type Record struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Link    string `json:"link"`
}

// Article is a stored news item.
type Article struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Summary   string    `json:"summary" bson:"summary"`
	Link      string    `json:"link" bson:"link"`
	NoteID    string    `json:"note_id,omitempty" bson:"note,omitempty"`
	Saved     bool      `json:"saved" bson:"saved"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// HasNote reports whether the article references a note.
func (a Article) HasNote() bool {
	return a.NoteID != ""
}

// PopulatedArticle is an Article with its referenced Note embedded.
type PopulatedArticle struct {
	Article
	Note *Note `json:"note,omitempty"`
}

// NoteFields is the caller-supplied note payload. Values are scalars.
type NoteFields map[string]any

// Clone returns a shallow copy of the payload.
func (f NoteFields) Clone() NoteFields {
	if f == nil {
		return nil
	}
	out := make(NoteFields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Note is a free-form annotation attached to at most one Article.
type Note struct {
	ID        string     `json:"id" bson:"_id"`
	Fields    NoteFields `json:"fields" bson:"fields"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
}

// Document is the raw markup returned by a Fetcher.
type Document struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	FetchedAt  time.Time
	Duration   time.Duration
}

// RecordFailure describes one record that could not be stored.
type RecordFailure struct {
	Link  string `json:"link"`
	Error string `json:"error"`
}

// BatchResult summarizes one scrape invocation.
type BatchResult struct {
	SourceURL  string          `json:"source_url"`
	Created    int             `json:"created"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
	Failures   []RecordFailure `json:"failures,omitempty"`
	ArchiveURI string          `json:"archive_uri,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Total is the number of records the batch saw.
func (r BatchResult) Total() int {
	return r.Created + r.Failed + r.Skipped
}

// DetachResult is returned once a note has been removed.
type DetachResult struct {
	Status string `json:"status"`
}

// DetachStatusDeleted is the only status DetachNote reports on success.
const DetachStatusDeleted = "deleted"
