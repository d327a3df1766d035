package extract

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/research/pkg/common"
)

// MainContentSelectors are tried when the page has no usable article element
var MainContentSelectors = []string{"main", ".content", "#content", ".main-content", "#main"}

// PageMeta describes the page a snapshot was taken from
type PageMeta struct {
	URL   string
	Title string
	At    time.Time
}

// ContentOptions tunes page content extraction
type ContentOptions struct {
	MaxTextLength int
	// MinMainContent is the exclusive minimum length for a container to count as main content
	MinMainContent int
}

// DefaultContentOptions returns the standard content limits
func DefaultContentOptions() ContentOptions {
	return ContentOptions{MaxTextLength: 50000, MinMainContent: 100}
}

// PageContent extracts structured content from a page snapshot
func PageContent(doc *goquery.Document, meta PageMeta, opts ContentOptions) common.PageContent {
	content := common.PageContent{
		Title:       meta.Title,
		URL:         meta.URL,
		ExtractedAt: meta.At,
		Headings:    Headings(doc),
		Paragraphs:  Paragraphs(doc),
		Lists:       Lists(doc),
		Sections:    FoldSections(Tokens(doc)),
	}
	if content.Title == "" {
		content.Title = common.CleanText(doc.Find("title").First().Text())
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		content.MetaDescription = strings.TrimSpace(desc)
	}
	content.MainContent = mainContent(doc, content.Paragraphs, opts)
	return content
}

// Headings collects non-empty h1..h6 headings in document order
func Headings(doc *goquery.Document) []common.Heading {
	headings := []common.Heading{}
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if t := common.CleanText(s.Text()); t != "" {
			level := int(goquery.NodeName(s)[1] - '0')
			headings = append(headings, common.Heading{Level: level, Text: t})
		}
	})
	return headings
}

// Paragraphs collects non-empty paragraphs, indexed by position among all paragraphs
func Paragraphs(doc *goquery.Document) []common.Paragraph {
	paragraphs := []common.Paragraph{}
	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		if t := common.CleanText(s.Text()); t != "" {
			paragraphs = append(paragraphs, common.Paragraph{Index: i + 1, Text: t})
		}
	})
	return paragraphs
}

// Lists collects lists with at least one non-empty item, indexed by position among all lists
func Lists(doc *goquery.Document) []common.List {
	lists := []common.List{}
	doc.Find("ul, ol").Each(func(i int, s *goquery.Selection) {
		items := listItems(s)
		if len(items) > 0 {
			lists = append(lists, common.List{Index: i + 1, Type: goquery.NodeName(s), Items: items})
		}
	})
	return lists
}

func listItems(s *goquery.Selection) []string {
	var items []string
	s.Find("li").Each(func(_ int, li *goquery.Selection) {
		if t := common.CleanText(li.Text()); t != "" {
			items = append(items, t)
		}
	})
	return items
}

func mainContent(doc *goquery.Document, paragraphs []common.Paragraph, opts ContentOptions) string {
	if article := doc.Find("article").First(); article.Length() > 0 {
		if t := blockText(article); t != "" {
			return common.Truncate(t, opts.MaxTextLength)
		}
	}

	for _, sel := range MainContentSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if t := blockText(el); utf8.RuneCountInString(t) > opts.MinMainContent {
			return common.Truncate(t, opts.MaxTextLength)
		}
	}

	if len(paragraphs) == 0 {
		return ""
	}
	texts := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		texts = append(texts, p.Text)
	}
	return common.Truncate(strings.Join(texts, "\n\n"), opts.MaxTextLength)
}

// blockText returns the readable text of s with one line per non-empty text line
func blockText(s *goquery.Selection) string {
	clone := s.Clone()
	clone.Find("script, style, noscript, template").Remove()

	var lines []string
	for _, line := range strings.Split(clone.Text(), "\n") {
		if t := common.CleanText(line); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}
