package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/research/internal/browser"
	"github.com/go-scripts/research/internal/metrics"
	"github.com/go-scripts/research/pkg/common"
)

// ResultContainerSelectors match organic result blocks across search page layouts
var ResultContainerSelectors = []string{
	"div.g",
	"div.yuRUbf",
	"div[data-sokoban-container]",
	"div.tF2Cxc",
	"div.Gx5Zad",
	"div.egMi0",
}

// TitleSelectors locate the result title inside a container
var TitleSelectors = []string{"h3", "h3.LC20lb", ".DKV0Md"}

// LinkSelectors locate the result link inside a container
var LinkSelectors = []string{"a", "a[href]", ".yuRUbf a"}

// SearchOptions tunes search result extraction
type SearchOptions struct {
	// BaseURL resolves relative links, normally the results page URL
	BaseURL string
	// EngineDomain excludes links mentioning the engine in the heuristic tier
	EngineDomain string
	Limit        int
	// MinTitleLength is the exclusive minimum title length for heuristic results
	MinTitleLength int
	// Enough stops the selector tier once this many results were collected
	Enough int
}

// DefaultSearchOptions returns the options used for Google results pages
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		EngineDomain:   "google",
		Limit:          100,
		MinTitleLength: 10,
		Enough:         3,
	}
}

type collector struct {
	results []common.SearchResult
	seen    map[string]struct{}
	limit   int
}

func newCollector(limit int) *collector {
	return &collector{seen: make(map[string]struct{}), limit: limit}
}

func (c *collector) full() bool {
	return c.limit > 0 && len(c.results) >= c.limit
}

func (c *collector) add(title, link string) bool {
	if title == "" || link == "" || c.full() {
		return false
	}
	if _, ok := c.seen[link]; ok {
		return false
	}
	c.seen[link] = struct{}{}
	c.results = append(c.results, common.SearchResult{
		Position: len(c.results) + 1,
		Title:    title,
		URL:      link,
	})
	return true
}

type tier struct {
	name string
	run  func(doc *goquery.Document, opts SearchOptions, c *collector)
}

var searchTiers = []tier{
	{name: "css", run: selectorTier},
	{name: "structural", run: structuralTier},
	{name: "heuristic", run: heuristicTier},
}

// SearchResults extracts organic results from a results page. Tiers run in
// order and a later tier only runs when the earlier ones found nothing.
func SearchResults(doc *goquery.Document, opts SearchOptions, logger *log.Logger) ([]common.SearchResult, error) {
	c := newCollector(opts.Limit)
	for _, t := range searchTiers {
		if len(c.results) > 0 {
			break
		}
		runTier(t, doc, opts, c, logger)
		if n := len(c.results); n > 0 {
			metrics.SearchResultsExtracted.WithLabelValues(t.name).Add(float64(n))
			logger.Debug("Extracted search results", "tier", t.name, "count", n)
		}
	}

	if len(c.results) == 0 {
		return nil, browser.Errorf(browser.KindExtractionEmpty, "extract search results",
			"could not extract any search results using multiple methods")
	}
	return c.results, nil
}

func runTier(t tier, doc *goquery.Document, opts SearchOptions, c *collector, logger *log.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Search result tier failed", "tier", t.name, "panic", r)
		}
	}()
	t.run(doc, opts, c)
}

func selectorTier(doc *goquery.Document, opts SearchOptions, c *collector) {
	for _, sel := range ResultContainerSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			title := firstText(s, TitleSelectors)
			link := firstHref(s, LinkSelectors, opts.BaseURL)
			if title == "" || link == "" {
				parent := s.Parent()
				if t := firstText(parent, []string{"h3"}); t != "" {
					title = t
				}
				if l := firstHref(parent, []string{"a"}, opts.BaseURL); l != "" {
					link = l
				}
			}
			c.add(title, link)
			return !c.full()
		})
		if len(c.results) >= opts.Enough || c.full() {
			return
		}
	}
}

func structuralTier(doc *goquery.Document, opts SearchOptions, c *collector) {
	doc.Find("a:has(h3)").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		c.add(common.CleanText(a.Find("h3").First().Text()), resolveLink(href, opts.BaseURL))
		return !c.full()
	})
}

func heuristicTier(doc *goquery.Document, opts SearchOptions, c *collector) {
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		link := resolveLink(href, opts.BaseURL)
		if link == "" || isEngineLink(link, opts.EngineDomain) {
			return true
		}
		text := common.CleanText(a.Text())
		if h := common.CleanText(a.Parent().Find("h3").First().Text()); h != "" {
			text = h
		}
		if utf8.RuneCountInString(text) > opts.MinTitleLength {
			c.add(text, link)
		}
		return !c.full()
	})
}

func firstText(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if t := common.CleanText(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func firstHref(s *goquery.Selection, selectors []string, base string) string {
	for _, sel := range selectors {
		href, ok := s.Find(sel).First().Attr("href")
		if !ok {
			continue
		}
		if link := resolveLink(href, base); link != "" {
			return link
		}
	}
	return ""
}

// resolveLink makes href absolute against base and unwraps engine redirect
// links of the form /url?q=<target>. Non-http links resolve to "".
func resolveLink(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if b, err := url.Parse(base); err == nil && base != "" {
		ref = b.ResolveReference(ref)
	}
	if ref.Path == "/url" {
		for _, key := range []string{"q", "url"} {
			if target := ref.Query().Get(key); strings.HasPrefix(target, "http") {
				if u, err := url.Parse(target); err == nil {
					ref = u
				}
				break
			}
		}
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

// isEngineLink reports whether link mentions the engine anywhere, including
// tracking parameters on third-party URLs
func isEngineLink(link, domain string) bool {
	if domain == "" {
		return false
	}
	return strings.Contains(strings.ToLower(link), strings.ToLower(domain))
}
