package extract

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/research/internal/browser"
	"github.com/go-scripts/research/internal/browser/browsertest"
	"github.com/go-scripts/research/pkg/common"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func discard() *log.Logger {
	return log.New(io.Discard)
}

const serpWithContainers = `<html><body>
<div class="g"><div class="yuRUbf"><a href="https://petbiz.example/guide"><h3>Pet Grooming Business Guide</h3></a></div></div>
<div class="g"><a href="/url?q=https://market.example/report&amp;sa=U"><h3 class="LC20lb">Pet Care Market Report</h3></a></div>
<div class="g"><a href="https://petbiz.example/guide"><h3>Duplicate link</h3></a></div>
<div class="g"><span>no link here</span></div>
</body></html>`

const serpStructural = `<html><body>
<section><a href="https://one.example/"><h3>First Structural Result</h3></a></section>
<section><a href="https://two.example/"><span><h3>Second Structural Result</h3></span></a></section>
</body></html>`

const serpHeuristic = `<html><body>
<div><a href="https://www.google.com/preferences">Search settings and preferences</a></div>
<div><a href="https://short.example/">Short</a></div>
<div><a href="https://partner.example/offer?utm_source=Google">A sponsored offer tracked from the engine</a></div>
<div><a href="https://long.example/article">A long enough anchor text for a result</a></div>
<div><h3>Heading Beside The Link</h3><a href="https://heading.example/">tiny</a></div>
<div><a href="javascript:void(0)">A javascript link that is long enough</a></div>
</body></html>`

func TestSearchResultsSelectorTier(t *testing.T) {
	opts := DefaultSearchOptions()
	opts.BaseURL = "https://www.google.com/search?q=pets"

	results, err := SearchResults(parse(t, serpWithContainers), opts, discard())
	require.NoError(t, err)

	assert.Equal(t, []common.SearchResult{
		{Position: 1, Title: "Pet Grooming Business Guide", URL: "https://petbiz.example/guide"},
		{Position: 2, Title: "Pet Care Market Report", URL: "https://market.example/report"},
	}, results)
}

func TestSearchResultsStructuralTier(t *testing.T) {
	results, err := SearchResults(parse(t, serpStructural), DefaultSearchOptions(), discard())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "First Structural Result", results[0].Title)
	assert.Equal(t, "https://two.example/", results[1].URL)
	assert.Equal(t, 2, results[1].Position)
}

func TestSearchResultsHeuristicTier(t *testing.T) {
	results, err := SearchResults(parse(t, serpHeuristic), DefaultSearchOptions(), discard())
	require.NoError(t, err)

	assert.Equal(t, []common.SearchResult{
		{Position: 1, Title: "A long enough anchor text for a result", URL: "https://long.example/article"},
		{Position: 2, Title: "Heading Beside The Link", URL: "https://heading.example/"},
	}, results)
}

func TestIsEngineLink(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{link: "https://www.google.com/preferences", want: true},
		{link: "https://maps.GOOGLE.com/place", want: true},
		{link: "https://x.example/?ref=google", want: true},
		{link: "https://x.example/guide", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.want, isEngineLink(tt.link, "google"))
		})
	}
	assert.False(t, isEngineLink("https://www.google.com/", ""))
}

func TestSearchResultsLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 150; i++ {
		b.WriteString(`<div class="g"><a href="https://site.example/` + strings.Repeat("p", i+1) + `"><h3>Result title</h3></a></div>`)
	}
	b.WriteString("</body></html>")

	results, err := SearchResults(parse(t, b.String()), DefaultSearchOptions(), discard())
	require.NoError(t, err)
	assert.Len(t, results, 100)

	seen := map[string]bool{}
	for i, r := range results {
		assert.Equal(t, i+1, r.Position)
		assert.False(t, seen[r.URL])
		seen[r.URL] = true
	}
}

func TestSearchResultsEmpty(t *testing.T) {
	_, err := SearchResults(parse(t, `<html><body><p>Our systems have detected unusual traffic</p></body></html>`), DefaultSearchOptions(), discard())
	assert.True(t, browser.IsKind(err, browser.KindExtractionEmpty))
	assert.Contains(t, err.Error(), "could not extract any search results using multiple methods")
}

func TestResolveLink(t *testing.T) {
	base := "https://www.google.com/search?q=x"
	tests := []struct {
		href string
		want string
	}{
		{href: "https://a.example/x", want: "https://a.example/x"},
		{href: "/url?q=https://b.example/y&sa=U", want: "https://b.example/y"},
		{href: "/preferences", want: "https://www.google.com/preferences"},
		{href: "#top", want: ""},
		{href: "mailto:me@example.com", want: ""},
		{href: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveLink(tt.href, base))
		})
	}
}

const articlePage = `<html><head><title>Doc Title</title>
<meta name="description" content=" A page about dog walking. "></head>
<body>
<h2>Pricing</h2>
<p>Walks cost money.</p>
<article>
<h1>Dog Walking</h1>
<p>Dog walking is a growing niche.</p>
<script>var x = 1;</script>
</article>
<p>   </p>
<ul><li>Leash</li><li> </li><li>Bags</li></ul>
<ol><li></li></ol>
<h1>Overview</h1>
<p>Demand is high.</p>
</body></html>`

func TestPageContent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	content := PageContent(parse(t, articlePage), PageMeta{URL: "https://dogs.example", At: at}, DefaultContentOptions())

	assert.Equal(t, "Doc Title", content.Title)
	assert.Equal(t, "https://dogs.example", content.URL)
	assert.Equal(t, at, content.ExtractedAt)
	assert.Equal(t, "A page about dog walking.", content.MetaDescription)
	assert.Equal(t, "Dog Walking\nDog walking is a growing niche.", content.MainContent)

	assert.Equal(t, []common.Heading{
		{Level: 2, Text: "Pricing"},
		{Level: 1, Text: "Dog Walking"},
		{Level: 1, Text: "Overview"},
	}, content.Headings)

	assert.Equal(t, []common.Paragraph{
		{Index: 1, Text: "Walks cost money."},
		{Index: 2, Text: "Dog walking is a growing niche."},
		{Index: 4, Text: "Demand is high."},
	}, content.Paragraphs)

	assert.Equal(t, []common.List{{Index: 1, Type: "ul", Items: []string{"Leash", "Bags"}}}, content.Lists)

	assert.Equal(t, []common.Section{
		{Heading: "Pricing", Level: 2, Content: "Walks cost money."},
		{Heading: "Dog Walking", Level: 1, Content: "Dog walking is a growing niche.\n\nLeash\nBags"},
		{Heading: "Overview", Level: 1, Content: "Demand is high."},
	}, content.Sections)
}

func TestHeadingsFollowDocument(t *testing.T) {
	doc := parse(t, `<body><h3>Costs</h3><div><h1>Guide</h1><h6> </h6></div><h2>Setup</h2><h3>Permits</h3></body>`)

	assert.Equal(t, []common.Heading{
		{Level: 3, Text: "Costs"},
		{Level: 1, Text: "Guide"},
		{Level: 2, Text: "Setup"},
		{Level: 3, Text: "Permits"},
	}, Headings(doc))
}

func TestPageContentIsDeterministic(t *testing.T) {
	doc := parse(t, articlePage)
	meta := PageMeta{URL: "https://dogs.example"}
	assert.Equal(t, PageContent(doc, meta, DefaultContentOptions()), PageContent(doc, meta, DefaultContentOptions()))
}

func TestMainContentFallbacks(t *testing.T) {
	long := strings.Repeat("word ", 30)

	t.Run("content container", func(t *testing.T) {
		html := `<html><body><div id="content">` + long + `</div><p>para</p></body></html>`
		content := PageContent(parse(t, html), PageMeta{}, DefaultContentOptions())
		assert.Equal(t, strings.TrimSpace(long), content.MainContent)
	})

	t.Run("short container falls through to paragraphs", func(t *testing.T) {
		html := `<html><body><main>tiny</main><p>one</p><p>two</p></body></html>`
		content := PageContent(parse(t, html), PageMeta{}, DefaultContentOptions())
		assert.Equal(t, "one\n\ntwo", content.MainContent)
	})

	t.Run("paragraphs truncated", func(t *testing.T) {
		html := `<html><body><p>` + strings.Repeat("a", 30) + `</p><p>` + strings.Repeat("b", 30) + `</p></body></html>`
		content := PageContent(parse(t, html), PageMeta{}, ContentOptions{MaxTextLength: 40, MinMainContent: 100})
		assert.Equal(t, strings.Repeat("a", 30)+"\n\n"+strings.Repeat("b", 8)+common.TruncationMarker, content.MainContent)
	})

	t.Run("nothing", func(t *testing.T) {
		content := PageContent(parse(t, `<html><body><div>hi</div></body></html>`), PageMeta{}, DefaultContentOptions())
		assert.Empty(t, content.MainContent)
		assert.Empty(t, content.Sections)
		assert.NotNil(t, content.Headings)
	})
}

func TestFoldSections(t *testing.T) {
	tokens := []Token{
		{Kind: TokenParagraph, Text: "before any heading"},
		{Kind: TokenHeading, Level: 1, Text: "A"},
		{Kind: TokenParagraph, Text: "x"},
		{Kind: TokenHeading, Level: 2, Text: "Empty"},
		{Kind: TokenParagraph, Text: "  "},
		{Kind: TokenHeading, Level: 2, Text: "B"},
		{Kind: TokenList, Text: "one\ntwo"},
		{Kind: TokenParagraph, Text: "y"},
	}

	assert.Equal(t, []common.Section{
		{Heading: "A", Level: 1, Content: "x"},
		{Heading: "B", Level: 2, Content: "one\ntwo\n\ny"},
	}, FoldSections(tokens))

	assert.Empty(t, FoldSections(nil))
}

func TestExtractor(t *testing.T) {
	d := browsertest.New(map[string]*browsertest.Page{
		"https://www.google.com/search?q=pets": {Title: "pets - Google Search", HTML: serpWithContainers},
		"https://dogs.example":                 {Title: "Dogs", HTML: articlePage},
	})
	e := New(browsertest.NewProvider(d), DefaultSearchOptions(), DefaultContentOptions(), discard())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e.now = func() time.Time { return fixed }
	ctx := context.Background()

	require.NoError(t, d.Navigate(ctx, "https://www.google.com/search?q=pets"))
	results, err := e.SearchResults(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	require.NoError(t, d.Navigate(ctx, "https://dogs.example"))
	content, err := e.PageContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dogs", content.Title)
	assert.Equal(t, "https://dogs.example", content.URL)
	assert.Equal(t, fixed, content.ExtractedAt)

	d.SourceErr = browser.Classify("page source", context.DeadlineExceeded)
	_, err = e.PageContent(ctx)
	assert.True(t, browser.IsKind(err, browser.KindTimeout))
}
