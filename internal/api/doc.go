// Package api hosts the HTTP server, middleware and REST handlers. Routes:
//   - GET /scrape runs one scrape and returns the batch tally.
//   - GET /articles and GET /notes (alias /Note) list stored entities.
//   - GET /articles/{id} returns an article with its note populated.
//   - POST /articles/{id} attaches a note built from the JSON body.
//   - DELETE /notes/delete/{note_id}/{article_id} detaches and deletes a note.
//   - POST /articles/delete/{id} soft-deletes an article.
//   - GET /healthz, /readyz and /metrics for probes and Prometheus.
package api
