// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Archive backends.
const (
	ArchiveNone   = "none"
	ArchiveMemory = "memory"
	ArchiveLocal  = "local"
	ArchiveGCS    = "gcs"
	ArchiveS3     = "s3"
)

// Batch notification transports.
const (
	PubSubGCP    = "gcp"
	PubSubKafka  = "kafka"
	PubSubMemory = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ScrapeConfig names the listing page and how to read it.
type ScrapeConfig struct {
	SourceURL         string `mapstructure:"source_url"`
	Origin            string `mapstructure:"origin"`
	ContainerSelector string `mapstructure:"container_selector"`
	TitleSelector     string `mapstructure:"title_selector"`
	SummarySelector   string `mapstructure:"summary_selector"`
	LinkSelector      string `mapstructure:"link_selector"`
	UserAgent         string `mapstructure:"user_agent"`
	RespectRobots     bool   `mapstructure:"respect_robots"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
}

// IngestConfig governs the write pool.
type IngestConfig struct {
	Concurrency  int  `mapstructure:"concurrency"`
	SkipExisting bool `mapstructure:"skip_existing"`
}

// StorageConfig selects the article and note backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// MongoConfig locates the Mongo database and collections.
type MongoConfig struct {
	URI                string `mapstructure:"uri"`
	Database           string `mapstructure:"database"`
	ArticlesCollection string `mapstructure:"articles_collection"`
	NotesCollection    string `mapstructure:"notes_collection"`
}

// PostgresConfig controls the pgx pool.
type PostgresConfig struct {
	DSN           string `mapstructure:"dsn"`
	MaxConns      int32  `mapstructure:"max_conns"`
	ArticlesTable string `mapstructure:"articles_table"`
	NotesTable    string `mapstructure:"notes_table"`
}

// ArchiveConfig selects where raw pages are archived.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	// S3Endpoint overrides the AWS endpoint for S3-compatible stores and
	// switches to path-style addressing.
	S3Bucket   string `mapstructure:"s3_bucket"`
	S3Region   string `mapstructure:"s3_region"`
	S3Endpoint string `mapstructure:"s3_endpoint"`
	Prefix     string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for batch notifications.
// An empty Topic disables publishing.
type PubSubConfig struct {
	Backend      string   `mapstructure:"backend"`
	ProjectID    string   `mapstructure:"project_id"`
	Topic        string   `mapstructure:"topic"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
}

// Load builds a Config from an optional file and HEADLINES_* environment
// variables. A .env file in the working directory is loaded first; variables
// already set in the environment win.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("HEADLINES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Every key has a default so that AutomaticEnv can override it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("scrape.source_url", "https://www.nytimes.com/search?query=soccer")
	v.SetDefault("scrape.origin", "https://www.nytimes.com")
	v.SetDefault("scrape.container_selector", ".css-138we14")
	v.SetDefault("scrape.title_selector", "h4")
	v.SetDefault("scrape.summary_selector", "p")
	v.SetDefault("scrape.link_selector", "a")
	v.SetDefault("scrape.user_agent", "headlines-bot/0.1")
	v.SetDefault("scrape.respect_robots", false)
	v.SetDefault("scrape.timeout_seconds", 15)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.skip_existing", false)
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "headlines")
	v.SetDefault("mongo.articles_collection", "articles")
	v.SetDefault("mongo.notes_collection", "notes")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 8)
	v.SetDefault("postgres.articles_table", "articles")
	v.SetDefault("postgres.notes_table", "notes")
	v.SetDefault("archive.backend", ArchiveNone)
	v.SetDefault("archive.base_dir", "")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.s3_bucket", "")
	v.SetDefault("archive.s3_region", "us-east-1")
	v.SetDefault("archive.s3_endpoint", "")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("pubsub.backend", PubSubGCP)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("pubsub.kafka_brokers", []string{})
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("server.request_timeout_seconds must be >= 0")
	}
	if c.Ingest.Concurrency <= 0 {
		return fmt.Errorf("ingest.concurrency must be > 0")
	}
	if c.Scrape.TimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.timeout_seconds must be > 0")
	}
	if u, err := url.Parse(c.Scrape.SourceURL); err != nil || !u.IsAbs() {
		return fmt.Errorf("scrape.source_url must be an absolute URL")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("mongo.uri and mongo.database are required for the mongo backend")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, mongo, postgres", c.Storage.Backend)
	}
	switch c.Archive.Backend {
	case ArchiveNone, ArchiveMemory:
	case ArchiveLocal:
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir is required for the local archive")
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required for the gcs archive")
		}
	case ArchiveS3:
		if c.Archive.S3Bucket == "" {
			return fmt.Errorf("archive.s3_bucket is required for the s3 archive")
		}
	default:
		return fmt.Errorf("archive.backend %q is not one of none, memory, local, gcs, s3", c.Archive.Backend)
	}
	if c.PubSub.Topic == "" {
		return nil
	}
	switch c.PubSub.Backend {
	case PubSubGCP:
		if c.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub.project_id is required when pubsub.topic is set")
		}
	case PubSubKafka:
		if len(c.PubSub.KafkaBrokers) == 0 {
			return fmt.Errorf("pubsub.kafka_brokers is required for the kafka backend")
		}
	case PubSubMemory:
	default:
		return fmt.Errorf("pubsub.backend %q is not one of gcp, kafka, memory", c.PubSub.Backend)
	}
	return nil
}

// ScrapeTimeout returns the per-fetch timeout.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scrape.TimeoutSeconds) * time.Second
}

// RequestTimeout returns the HTTP handler timeout; zero disables it.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
