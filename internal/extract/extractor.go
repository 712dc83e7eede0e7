// Package extract turns a parsed listing page into a lazy sequence of article records.
package extract

import (
	"bytes"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/JakeFAU/headlines/internal/headlines"
)

// Default selectors match the search-results markup of the original source site.
const (
	DefaultContainerSelector = ".css-138we14"
	DefaultTitleSelector     = "h4"
	DefaultSummarySelector   = "p"
	DefaultLinkSelector      = "a"
	DefaultOrigin            = "https://www.nytimes.com"
)

// Config names the selectors used to locate each field inside a container block.
type Config struct {
	ContainerSelector string
	TitleSelector     string
	SummarySelector   string
	LinkSelector      string
	// Origin is the absolute site origin relative hrefs are resolved against.
	Origin string
}

// Extractor walks container blocks and yields one Record per block.
type Extractor struct {
	cfg    Config
	origin *url.URL
}

// New validates the selectors and origin, applying defaults for empty values.
func New(cfg Config) (*Extractor, error) {
	cfg = withDefaults(cfg)
	for name, sel := range map[string]string{
		"container": cfg.ContainerSelector,
		"title":     cfg.TitleSelector,
		"summary":   cfg.SummarySelector,
		"link":      cfg.LinkSelector,
	} {
		if _, err := cascadia.Compile(sel); err != nil {
			return nil, fmt.Errorf("compile %s selector %q: %w", name, sel, err)
		}
	}
	origin, err := url.Parse(cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if !origin.IsAbs() || origin.Host == "" {
		return nil, fmt.Errorf("origin %q must be an absolute URL", cfg.Origin)
	}
	return &Extractor{cfg: cfg, origin: origin}, nil
}

func withDefaults(cfg Config) Config {
	if strings.TrimSpace(cfg.ContainerSelector) == "" {
		cfg.ContainerSelector = DefaultContainerSelector
	}
	if strings.TrimSpace(cfg.TitleSelector) == "" {
		cfg.TitleSelector = DefaultTitleSelector
	}
	if strings.TrimSpace(cfg.SummarySelector) == "" {
		cfg.SummarySelector = DefaultSummarySelector
	}
	if strings.TrimSpace(cfg.LinkSelector) == "" {
		cfg.LinkSelector = DefaultLinkSelector
	}
	if strings.TrimSpace(cfg.Origin) == "" {
		cfg.Origin = DefaultOrigin
	}
	return cfg
}

// Parse builds a queryable tree from raw markup.
func (e *Extractor) Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// Extract parses body and returns the records it contains.
func (e *Extractor) Extract(body []byte) (iter.Seq[headlines.Record], error) {
	doc, err := e.Parse(body)
	if err != nil {
		return nil, err
	}
	return e.Records(doc), nil
}

// Records yields one Record per container match. Fields whose node is missing
// are left empty. The sequence is lazy and stops when the consumer stops.
func (e *Extractor) Records(doc *goquery.Document) iter.Seq[headlines.Record] {
	return func(yield func(headlines.Record) bool) {
		if doc == nil {
			return
		}
		doc.Find(e.cfg.ContainerSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			return yield(e.record(s))
		})
	}
}

func (e *Extractor) record(s *goquery.Selection) headlines.Record {
	rec := headlines.Record{
		Title:   s.Find(e.cfg.TitleSelector).First().Text(),
		Summary: s.Find(e.cfg.SummarySelector).First().Text(),
	}
	if href, ok := s.Find(e.cfg.LinkSelector).First().Attr("href"); ok {
		rec.Link = e.resolve(href)
	}
	return rec
}

// resolve rebuilds href into an absolute URL under the configured origin.
func (e *Extractor) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return e.origin.ResolveReference(ref).String()
}
