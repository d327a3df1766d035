// Package extract turns page snapshots into search results and structured page content.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/research/internal/browser"
	"github.com/go-scripts/research/pkg/common"
)

// Extractor snapshots the current page of a browser session and extracts from it
type Extractor struct {
	provider browser.Provider
	search   SearchOptions
	content  ContentOptions
	logger   *log.Logger
	now      func() time.Time
}

// New creates an Extractor
func New(p browser.Provider, search SearchOptions, content ContentOptions, logger *log.Logger) *Extractor {
	return &Extractor{
		provider: p,
		search:   search,
		content:  content,
		logger:   logger,
		now:      time.Now,
	}
}

// Snapshot parses the current page HTML
func (e *Extractor) Snapshot(ctx context.Context) (*goquery.Document, PageMeta, error) {
	d, err := e.provider.Driver(ctx)
	if err != nil {
		return nil, PageMeta{}, err
	}
	html, err := d.Source(ctx)
	if err != nil {
		return nil, PageMeta{}, browser.NewError(browser.KindOf(err), "snapshot", "page source", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, PageMeta{}, browser.NewError(browser.KindDriverFault, "snapshot", "parse html", err)
	}

	meta := PageMeta{At: e.now()}
	if meta.URL, err = d.Location(ctx); err != nil {
		e.logger.Debug("Could not read page location", "err", err)
	}
	if meta.Title, err = d.Title(ctx); err != nil {
		e.logger.Debug("Could not read page title", "err", err)
	}
	return doc, meta, nil
}

// SearchResults extracts organic results from the current results page
func (e *Extractor) SearchResults(ctx context.Context) ([]common.SearchResult, error) {
	doc, meta, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	opts := e.search
	if opts.BaseURL == "" {
		opts.BaseURL = meta.URL
	}
	results, err := SearchResults(doc, opts, e.logger)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Extracted search results", "count", len(results))
	return results, nil
}

// PageContent extracts structured content from the current page
func (e *Extractor) PageContent(ctx context.Context) (common.PageContent, error) {
	doc, meta, err := e.Snapshot(ctx)
	if err != nil {
		return common.PageContent{}, err
	}
	return PageContent(doc, meta, e.content), nil
}
