package association

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/headlines/internal/headlines"
	"github.com/JakeFAU/headlines/internal/id/uuid"
	"github.com/JakeFAU/headlines/internal/storage/memory"
)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Unix(1700000000, 0).UTC() }

// flakyArticles fails reference writes when updateErr is set and runs
// beforeClear ahead of ClearNoteRef.
type flakyArticles struct {
	*memory.ArticleStore
	updateErr   error
	beforeClear func()
}

func (f *flakyArticles) UpdateNoteRef(ctx context.Context, articleID, noteID string) (headlines.Article, error) {
	if f.updateErr != nil {
		return headlines.Article{}, f.updateErr
	}
	return f.ArticleStore.UpdateNoteRef(ctx, articleID, noteID)
}

func (f *flakyArticles) ClearNoteRef(ctx context.Context, articleID, noteID string) (bool, error) {
	if f.beforeClear != nil {
		f.beforeClear()
	}
	if f.updateErr != nil {
		return false, f.updateErr
	}
	return f.ArticleStore.ClearNoteRef(ctx, articleID, noteID)
}

// flakyNotes fails DeleteByID when deleteErr is set.
type flakyNotes struct {
	*memory.NoteStore
	deleteErr error
}

func (f *flakyNotes) DeleteByID(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.NoteStore.DeleteByID(ctx, id)
}

type fixture struct {
	mgr      *Manager
	articles *flakyArticles
	notes    *flakyNotes
	logs     *observer.ObservedLogs
	article  headlines.Article
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	articles := &flakyArticles{ArticleStore: memory.NewArticleStore(uuid.New(), fixedClock{})}
	notes := &flakyNotes{NoteStore: memory.NewNoteStore(uuid.New(), fixedClock{})}
	article, err := articles.Create(context.Background(), headlines.Record{Title: "t", Link: "https://example.com/1"})
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	return fixture{
		mgr:      New(articles, notes, zap.New(core)),
		articles: articles,
		notes:    notes,
		logs:     logs,
		article:  article,
	}
}

func TestAttachLinksNote(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	fields := headlines.NoteFields{"title": "Good read", "body": "Loved it", "stars": 4}

	got, err := f.mgr.Attach(ctx, f.article.ID, fields)
	require.NoError(t, err)
	require.True(t, got.HasNote())

	note, err := f.notes.FindByID(ctx, got.NoteID)
	require.NoError(t, err)
	require.Equal(t, fields, note.Fields)
}

func TestAttachRejectsInvalidFieldsBeforeWriting(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for name, fields := range map[string]headlines.NoteFields{
		"empty":  {},
		"nested": {"tags": []string{"a"}},
		"blank":  {" ": "x"},
	} {
		_, err := f.mgr.Attach(ctx, f.article.ID, fields)
		var verr *headlines.ValidationError
		require.ErrorAs(t, err, &verr, name)
	}
	notes, err := f.notes.FindAll(ctx)
	require.NoError(t, err)
	require.Empty(t, notes)
}

func TestAttachStoresLargeIntegersExactly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	linked, err := f.mgr.Attach(ctx, f.article.ID, headlines.NoteFields{"ref": json.Number("9007199254740993")})
	require.NoError(t, err)

	note, err := f.notes.FindByID(ctx, linked.NoteID)
	require.NoError(t, err)
	require.Equal(t, int64(9007199254740993), note.Fields["ref"])
}

func TestAttachUnknownArticle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.mgr.Attach(context.Background(), "missing", headlines.NoteFields{"body": "x"})
	require.ErrorIs(t, err, headlines.ErrNotFound)
	notes, err := f.notes.FindAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, notes)
}

func TestAttachLinkFailureOrphansNote(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.articles.updateErr = &headlines.StorageError{Op: "update note ref", Err: errors.New("timeout")}

	_, err := f.mgr.Attach(context.Background(), f.article.ID, headlines.NoteFields{"body": "x"})
	var serr *headlines.StorageError
	require.ErrorAs(t, err, &serr)

	notes, err := f.notes.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	entries := f.logs.FilterMessage("note orphaned: article reference not set").All()
	require.Len(t, entries, 1)
	require.Equal(t, notes[0].ID, entries[0].ContextMap()["note_id"])
}

func TestAttachReplacesReference(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	first, err := f.mgr.Attach(ctx, f.article.ID, headlines.NoteFields{"body": "one"})
	require.NoError(t, err)
	second, err := f.mgr.Attach(ctx, f.article.ID, headlines.NoteFields{"body": "two"})
	require.NoError(t, err)
	require.NotEqual(t, first.NoteID, second.NoteID)

	stored, err := f.articles.FindByID(ctx, f.article.ID)
	require.NoError(t, err)
	require.Equal(t, second.NoteID, stored.NoteID)
}

func TestDetachDeletesNoteAndClearsReference(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	linked, err := f.mgr.Attach(ctx, f.article.ID, headlines.NoteFields{"body": "x"})
	require.NoError(t, err)

	res, err := f.mgr.Detach(ctx, linked.NoteID, f.article.ID)
	require.NoError(t, err)
	require.Equal(t, headlines.DetachResult{Status: headlines.DetachStatusDeleted}, res)

	notes, err := f.notes.FindAll(ctx)
	require.NoError(t, err)
	require.Empty(t, notes)
	stored, err := f.articles.FindByID(ctx, f.article.ID)
	require.NoError(t, err)
	require.False(t, stored.HasNote())
}

func TestDetachDeleteFailureKeepsReference(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	linked, err := f.mgr.Attach(ctx, f.article.ID, headlines.NoteFields{"body": "x"})
	require.NoError(t, err)
	f.notes.deleteErr = &headlines.StorageError{Op: "delete note", Err: errors.New("timeout")}

	_, err = f.mgr.Detach(ctx, linked.NoteID, f.article.ID)
	require.Error(t, err)
	stored, err := f.articles.FindByID(ctx, f.article.ID)
	require.NoError(t, err)
	require.Equal(t, linked.NoteID, stored.NoteID)
}

func TestDetachUnlinkFailureLeavesDanglingReference(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	linked, err := f.mgr.Attach(ctx, f.article.ID, headlines.NoteFields{"body": "x"})
	require.NoError(t, err)
	f.articles.updateErr = &headlines.StorageError{Op: "update note ref", Err: errors.New("timeout")}

	_, err = f.mgr.Detach(ctx, linked.NoteID, f.article.ID)
	require.Error(t, err)
	_, err = f.notes.FindByID(ctx, linked.NoteID)
	require.ErrorIs(t, err, headlines.ErrNotFound)
	require.Equal(t, 1, f.logs.FilterMessage("dangling note reference: note deleted but article not updated").Len())
}

func TestDetachKeepsReferenceReplacedByConcurrentAttach(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	first, err := f.mgr.Attach(ctx, f.article.ID, headlines.NoteFields{"body": "old"})
	require.NoError(t, err)

	var replacement headlines.Article
	f.articles.beforeClear = func() {
		f.articles.beforeClear = nil
		replacement, err = f.mgr.Attach(ctx, f.article.ID, headlines.NoteFields{"body": "new"})
		require.NoError(t, err)
	}

	_, err = f.mgr.Detach(ctx, first.NoteID, f.article.ID)
	require.NoError(t, err)
	stored, err := f.articles.FindByID(ctx, f.article.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.NoteID, replacement.NoteID)
	require.Equal(t, replacement.NoteID, stored.NoteID)
	require.Equal(t, 1, f.logs.FilterMessage("deleted note was not referenced by article").Len())
}

func TestDetachMissingNote(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.mgr.Detach(context.Background(), "missing", f.article.ID)
	require.ErrorIs(t, err, headlines.ErrNotFound)
}

func TestDetachUnreferencedNoteKeepsCurrentReference(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	stray, err := f.notes.Create(ctx, headlines.NoteFields{"body": "stray"})
	require.NoError(t, err)
	linked, err := f.mgr.Attach(ctx, f.article.ID, headlines.NoteFields{"body": "kept"})
	require.NoError(t, err)

	_, err = f.mgr.Detach(ctx, stray.ID, f.article.ID)
	require.NoError(t, err)
	stored, err := f.articles.FindByID(ctx, f.article.ID)
	require.NoError(t, err)
	require.Equal(t, linked.NoteID, stored.NoteID)
}
