package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JakeFAU/headlines/internal/headlines"
)

// ArticleStore keeps one document per article. The note field is absent when
// the article has no note.
type ArticleStore struct {
	coll  *mongo.Collection
	idGen headlines.IDGenerator
	clock headlines.Clock
}

// NewArticleStore wraps coll.
func NewArticleStore(coll *mongo.Collection, idGen headlines.IDGenerator, clock headlines.Clock) *ArticleStore {
	return &ArticleStore{coll: coll, idGen: idGen, clock: clock}
}

func ensureLinkIndex(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "link", Value: 1}},
		Options: options.Index().SetName("link_1"),
	})
	if err != nil {
		return fmt.Errorf("create link index: %w", err)
	}
	return nil
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
	if _, err := s.coll.InsertOne(ctx, article); err != nil {
		return headlines.Article{}, headlines.NewStorageError("create article", err)
	}
	return article, nil
}

// FindAll lists articles. UUIDv7 ids sort in creation order.
func (s *ArticleStore) FindAll(ctx context.Context) ([]headlines.Article, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, headlines.NewStorageError("list articles", err)
	}
	var out []headlines.Article
	if err := cursor.All(ctx, &out); err != nil {
		return nil, headlines.NewStorageError("list articles", err)
	}
	return out, nil
}

// FindByID fetches one article.
func (s *ArticleStore) FindByID(ctx context.Context, id string) (headlines.Article, error) {
	var article headlines.Article
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&article)
	return article, articleError("find article", id, err)
}

// FindByLink returns the oldest article stored under link.
func (s *ArticleStore) FindByLink(ctx context.Context, link string) (headlines.Article, error) {
	var article headlines.Article
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	err := s.coll.FindOne(ctx, bson.M{"link": link}, opts).Decode(&article)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return headlines.Article{}, fmt.Errorf("article with link %q: %w", link, headlines.ErrNotFound)
	}
	return article, headlines.NewStorageError("find article by link", err)
}

// UpdateNoteRef sets the note field, or unsets it when noteID is empty.
func (s *ArticleStore) UpdateNoteRef(ctx context.Context, articleID, noteID string) (headlines.Article, error) {
	update := bson.M{"$set": bson.M{"note": noteID}}
	if noteID == "" {
		update = bson.M{"$unset": bson.M{"note": ""}}
	}
	return s.findAndUpdate(ctx, "update note ref", articleID, update)
}

// ClearNoteRef unsets the note field when it still matches noteID.
func (s *ArticleStore) ClearNoteRef(ctx context.Context, articleID, noteID string) (bool, error) {
	filter := bson.M{"_id": articleID, "note": noteID}
	err := s.coll.FindOneAndUpdate(ctx, filter, bson.M{"$unset": bson.M{"note": ""}}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, headlines.NewStorageError("clear note ref", err)
	}
	return true, nil
}

// SoftDelete sets saved to false and unsets the note field.
func (s *ArticleStore) SoftDelete(ctx context.Context, articleID string) (headlines.Article, error) {
	update := bson.M{
		"$set":   bson.M{"saved": false},
		"$unset": bson.M{"note": ""},
	}
	return s.findAndUpdate(ctx, "soft delete article", articleID, update)
}

func (s *ArticleStore) findAndUpdate(ctx context.Context, op, id string, update bson.M) (headlines.Article, error) {
	var article headlines.Article
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&article)
	return article, articleError(op, id, err)
}

func articleError(op, id string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("article %s: %w", id, headlines.ErrNotFound)
	}
	return headlines.NewStorageError(op, err)
}
