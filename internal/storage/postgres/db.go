// Package postgres provides Postgres-backed article and note stores.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/headlines/internal/headlines"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	defaultArticlesTable = "articles"
	defaultNotesTable    = "notes"
)

// Config controls the connection pool and table names.
type Config struct {
	DSN             string
	ArticlesTable   string
	NotesTable      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of pgxpool.Pool the stores use. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// DB owns the pool shared by the article and note stores.
type DB struct {
	pool     Pool
	articles string
	notes    string
}

// Open connects a pgx pool using cfg.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db, err := NewWithPool(pool, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// NewWithPool wraps an existing pool (primarily for testing).
func NewWithPool(pool Pool, cfg Config) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	articles := cfg.ArticlesTable
	if articles == "" {
		articles = defaultArticlesTable
	}
	notes := cfg.NotesTable
	if notes == "" {
		notes = defaultNotesTable
	}
	for _, table := range []string{articles, notes} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &DB{pool: pool, articles: articles, notes: notes}, nil
}

// EnsureSchema creates the tables and the link index when missing.
func (d *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	seq BIGSERIAL,
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	link TEXT NOT NULL DEFAULT '',
	note_id TEXT NOT NULL DEFAULT '',
	saved BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
)`, d.articles),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_link_idx ON %s (link)`, d.articles, d.articles),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	seq BIGSERIAL,
	id TEXT PRIMARY KEY,
	fields JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`, d.notes),
	}
	for _, stmt := range stmts {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Close releases the underlying pool resources.
func (d *DB) Close() {
	if d == nil || d.pool == nil {
		return
	}
	d.pool.Close()
}

// Articles returns an ArticleStore backed by this DB.
func (d *DB) Articles(idGen headlines.IDGenerator, clock headlines.Clock) *ArticleStore {
	return &ArticleStore{pool: d.pool, table: d.articles, idGen: idGen, clock: clock}
}

// Notes returns a NoteStore backed by this DB.
func (d *DB) Notes(idGen headlines.IDGenerator, clock headlines.Clock) *NoteStore {
	return &NoteStore{pool: d.pool, table: d.notes, idGen: idGen, clock: clock}
}
