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

// NoteStore keeps one document per note with the payload under "fields".
type NoteStore struct {
	coll  *mongo.Collection
	idGen headlines.IDGenerator
	clock headlines.Clock
}

// NewNoteStore wraps coll.
func NewNoteStore(coll *mongo.Collection, idGen headlines.IDGenerator, clock headlines.Clock) *NoteStore {
	return &NoteStore{coll: coll, idGen: idGen, clock: clock}
}

// Create inserts a note.
func (s *NoteStore) Create(ctx context.Context, fields headlines.NoteFields) (headlines.Note, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return headlines.Note{}, headlines.NewStorageError("create note", err)
	}
	note := headlines.Note{ID: id, Fields: fields.Clone(), CreatedAt: s.clock.Now()}
	if _, err := s.coll.InsertOne(ctx, note); err != nil {
		return headlines.Note{}, headlines.NewStorageError("create note", err)
	}
	return note, nil
}

// FindAll lists notes in creation order.
func (s *NoteStore) FindAll(ctx context.Context) ([]headlines.Note, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, headlines.NewStorageError("list notes", err)
	}
	var out []headlines.Note
	if err := cursor.All(ctx, &out); err != nil {
		return nil, headlines.NewStorageError("list notes", err)
	}
	return out, nil
}

// FindByID fetches one note.
func (s *NoteStore) FindByID(ctx context.Context, id string) (headlines.Note, error) {
	var note headlines.Note
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&note)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return headlines.Note{}, fmt.Errorf("note %s: %w", id, headlines.ErrNotFound)
	}
	return note, headlines.NewStorageError("find note", err)
}

// DeleteByID removes a note.
func (s *NoteStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return headlines.NewStorageError("delete note", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("note %s: %w", id, headlines.ErrNotFound)
	}
	return nil
}
