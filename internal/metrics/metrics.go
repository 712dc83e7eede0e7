// Package metrics exposes Prometheus collectors for the headlines service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Record outcomes reported by the ingestion pipeline.
const (
	OutcomeCreated = "created"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Scrape outcomes.
const (
	ScrapeSucceeded   = "success"
	ScrapeFetchFailed = "fetch_error"
	ScrapeParseFailed = "parse_error"
)

var (
	scrapesTotal               *prometheus.CounterVec
	scrapeDurationSeconds      *prometheus.HistogramVec
	recordsTotal               *prometheus.CounterVec
	fetchedBytesTotal          *prometheus.CounterVec
	notesTotal                 *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headlines_scrapes_total",
				Help: "Total number of scrape runs, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		scrapeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "headlines_scrape_duration_seconds",
				Help:    "Histogram of end-to-end scrape latencies, labeled by site.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headlines_records_total",
				Help: "Total number of extracted records, labeled by ingestion outcome.",
			},
			[]string{"outcome"},
		)

		fetchedBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headlines_fetched_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		notesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headlines_notes_total",
				Help: "Total number of note association changes, labeled by operation and result.",
			},
			[]string{"op", "result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveScrape records one scrape run.
func ObserveScrape(sourceURL, outcome string, bytesFetched int, duration time.Duration) {
	Init()
	site := SanitizeSite(sourceURL)
	scrapesTotal.WithLabelValues(site, outcome).Inc()
	scrapeDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
	if bytesFetched > 0 {
		fetchedBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
}

// ObserveRecord increments the record counter for the given outcome.
func ObserveRecord(outcome string) {
	Init()
	recordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveNote increments the association counter.
func ObserveNote(op string, err error) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	notesTotal.WithLabelValues(op, result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
