// Package mongo provides MongoDB-backed article and note stores.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JakeFAU/headlines/internal/headlines"
)

// Config selects the deployment, database and collections.
type Config struct {
	URI                string
	Database           string
	ArticlesCollection string
	NotesCollection    string
	ConnectTimeout     time.Duration
}

// Client wraps the MongoDB client and database handle.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	articles *mongo.Collection
	notes    *mongo.Collection
}

// Connect dials the deployment and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo.uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongo.database is required")
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	mc, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	c := newClient(mc, cfg)
	if err := c.Ping(ctx); err != nil {
		_ = mc.Disconnect(context.Background())
		return nil, err
	}
	return c, nil
}

func newClient(mc *mongo.Client, cfg Config) *Client {
	articles := cfg.ArticlesCollection
	if articles == "" {
		articles = "articles"
	}
	notes := cfg.NotesCollection
	if notes == "" {
		notes = "notes"
	}
	database := mc.Database(cfg.Database)
	return &Client{
		client:   mc,
		database: database,
		articles: database.Collection(articles),
		notes:    database.Collection(notes),
	}
}

// Ping checks connectivity to the primary.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}

// EnsureIndexes creates the link index on the articles collection.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	return ensureLinkIndex(ctx, c.articles)
}

// Articles returns an ArticleStore over the configured collection.
func (c *Client) Articles(idGen headlines.IDGenerator, clock headlines.Clock) *ArticleStore {
	return NewArticleStore(c.articles, idGen, clock)
}

// Notes returns a NoteStore over the configured collection.
func (c *Client) Notes(idGen headlines.IDGenerator, clock headlines.Clock) *NoteStore {
	return NewNoteStore(c.notes, idGen, clock)
}
