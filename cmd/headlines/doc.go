// Package main hosts the headlines service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes the scrape trigger, article and note routes, plus health, readiness,
//     and metrics endpoints. Domain errors are mapped to status codes at this boundary.
//   - Scrape pipeline: internal/scraper fetches the configured listing page through the Colly fetcher, archives the
//     raw page by content hash when an archive backend is configured, extracts records with goquery, and hands them
//     to the ingest worker pool sized by ingest.concurrency.
//   - Persistence: articles and notes live in memory, MongoDB, or Postgres depending on storage.backend. Indexes
//     and tables are created at startup. Raw pages go to memory, a local directory, GCS, or S3.
//   - Notes: internal/association creates a note and then points the article at it; detach deletes the note and
//     then clears the reference. A failure between the two steps is logged, never rolled back.
//   - Fanout: when pubsub.topic is set, each batch result is published to Google Pub/Sub or Kafka.
//
// Operational notes:
//   - A scrape is not cancellable once started; the handler runs it on a context detached from the client.
//   - Other routes are bounded by server.request_timeout_seconds.
//   - The process reacts to SIGINT and SIGTERM by draining the HTTP server and closing backend handles.
//
// Quick checklist:
//   - Configure env vars: HEADLINES_SERVER_PORT, HEADLINES_SCRAPE_SOURCE_URL, HEADLINES_STORAGE_BACKEND, the matching
//     HEADLINES_MONGO_* or HEADLINES_POSTGRES_* values, HEADLINES_ARCHIVE_*, and HEADLINES_PUBSUB_TOPIC.
//   - Run locally: go run ./cmd/headlines serve --config config.yaml (or rely solely on env overrides and .env).
//   - One-off scrape: go run ./cmd/headlines scrape prints the batch result as JSON.
package main
