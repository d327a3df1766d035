package research

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/research/internal/browser"
	"github.com/go-scripts/research/internal/browser/browsertest"
	"github.com/go-scripts/research/internal/extract"
	"github.com/go-scripts/research/internal/writer"
	"github.com/go-scripts/research/pkg/common"
	"github.com/go-scripts/research/pkg/crawl"
)

const (
	alphaURL = "https://alpha.example/guide"
	betaURL  = "https://beta.example/report"
)

const serp = `<html><head><title>pet grooming - Google Search</title></head><body>
<div class="g"><a href="https://alpha.example/guide"><h3>Alpha Pet Grooming Guide</h3></a></div>
<div class="g"><a href="https://beta.example/report"><h3>Beta Pet Market Report</h3></a></div>
<div class="g"><a href="https://alpha.example/guide"><h3>Alpha Pet Grooming Again</h3></a></div>
</body></html>`

const alphaPage = `<html><head><title>Alpha Guide</title>
<meta name="description" content="Starting a pet grooming business"></head><body>
<h1>Pet Grooming</h1>
<p>Mobile grooming vans are in demand.</p>
<h2>Costs</h2>
<ul><li>Van</li><li>Tools</li></ul>
</body></html>`

type recordingObserver struct {
	mu       sync.Mutex
	states   []State
	started  []string
	finished []common.Status
	onFinish func()
}

func (o *recordingObserver) StateChanged(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingObserver) SearchCompleted(string, int) {}

func (o *recordingObserver) SiteStarted(_, _ int, _, url string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, url)
}

func (o *recordingObserver) SiteFinished(_, _ int, status common.Status) {
	o.mu.Lock()
	o.finished = append(o.finished, status)
	hook := o.onFinish
	o.mu.Unlock()
	if hook != nil {
		hook()
	}
}

type fixture struct {
	driver   *browsertest.Driver
	provider *browsertest.Provider
	nav      *crawl.Navigator
	dir      string
	observer *recordingObserver
	r        *Researcher
}

func newFixture(t *testing.T, serpHTML string) *fixture {
	t.Helper()
	logger := log.New(io.Discard)
	cfg := common.DefaultConfiguration()

	human := crawl.NewHumanizer(cfg.Humanize,
		crawl.WithRand(rand.New(rand.NewSource(1))),
		crawl.WithSleep(crawl.NoSleep),
	)
	d := browsertest.New(nil)
	p := browsertest.NewProvider(d)
	nav := crawl.NewNavigator(p, human, crawl.NavigatorConfig{
		MaxRetries:    2,
		SearchURL:     cfg.Research.SearchURL,
		MaxTextLength: cfg.Research.MaxTextLength,
	}, logger)

	d.Pages[nav.SearchURL(Query("pet grooming", cfg.Research.QueryQualifiers))] = &browsertest.Page{
		Title: "pet grooming - Google Search",
		HTML:  serpHTML,
	}
	d.Pages[alphaURL] = &browsertest.Page{Title: "Alpha Guide", HTML: alphaPage}
	d.Pages[betaURL] = &browsertest.Page{Title: "Beta Report", HTML: `<html><body><p>beta</p></body></html>`}

	dir := t.TempDir()
	w, err := writer.New(dir)
	require.NoError(t, err)

	obs := &recordingObserver{}
	r := New(cfg.Research, Deps{
		Session:   p,
		Navigator: nav,
		Extractor: extract.New(p, extract.DefaultSearchOptions(), extract.DefaultContentOptions(), logger),
		Writer:    w,
		Humanizer: human,
		Observer:  obs,
		Logger:    logger,
		Now:       func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) },
	})
	return &fixture{driver: d, provider: p, nav: nav, dir: dir, observer: obs, r: r}
}

func readDataset(t *testing.T, path string) []common.WebsiteRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []common.WebsiteRecord
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "pet grooming business opportunity analysis profitable",
		Query("pet grooming", "business opportunity analysis profitable"))
	assert.Equal(t, "pet grooming", Query("pet grooming", ""))
}

func TestResearchNicheVisitsEachResult(t *testing.T) {
	f := newFixture(t, serp)
	f.driver.NavigateFunc = func(url string) error {
		if url == betaURL {
			return browser.Errorf(browser.KindDriverFault, "navigate", "net::ERR_CONNECTION_REFUSED")
		}
		return nil
	}

	out, err := f.r.ResearchNiche(context.Background(), "pet grooming")
	require.NoError(t, err)

	assert.Equal(t, common.OutcomeCompleted, out.Status)
	assert.Equal(t, "pet grooming business opportunity analysis profitable", out.Query)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 2, out.WebsitesAnalyzed)
	assert.Equal(t, filepath.Join(f.dir, "business_niche_data_20240309-140507.json"), out.DataFilename)
	assert.Contains(t, out.AnalysisPrompt, "You have collected data from 2 websites")
	assert.Equal(t, StateDone, f.r.State())

	records := readDataset(t, out.DataFilename)
	require.Len(t, records, 2)
	assert.Len(t, out.Records, 2)

	alpha := records[0]
	assert.Equal(t, alphaURL, alpha.URL)
	assert.Equal(t, common.StatusSuccess, alpha.Status)
	assert.Equal(t, "Alpha Guide", alpha.Title)
	require.NotNil(t, alpha.Content)
	assert.Equal(t, "Starting a pet grooming business", alpha.Content.MetaDescription)
	assert.Nil(t, alpha.ContentError)
	require.Len(t, alpha.Screenshots, 2)
	for _, shot := range alpha.Screenshots {
		assert.FileExists(t, shot)
	}
	assert.NotEqual(t, alpha.Screenshots[0], alpha.Screenshots[1])

	beta := records[1]
	assert.Equal(t, betaURL, beta.URL)
	assert.Equal(t, common.StatusFailed, beta.Status)
	assert.Contains(t, beta.Error, "ERR_CONNECTION_REFUSED")
	assert.Nil(t, beta.Content)
	assert.Empty(t, beta.Screenshots)

	assert.Equal(t, []string{alphaURL, betaURL}, f.observer.started)
	assert.Equal(t, []common.Status{common.StatusSuccess, common.StatusFailed}, f.observer.finished)
	assert.Contains(t, f.observer.states, StatePersisting)
}

func TestResearchNicheWithoutResults(t *testing.T) {
	f := newFixture(t, `<html><body><p>Your search did not match any documents.</p></body></html>`)

	out, err := f.r.ResearchNiche(context.Background(), "pet grooming")
	require.NoError(t, err)

	assert.Equal(t, common.OutcomeNoResults, out.Status)
	assert.Equal(t, NoResultsMessage, out.Message)
	assert.Zero(t, out.WebsitesAnalyzed)
	assert.Empty(t, out.DataFilename)
	assert.Len(t, f.driver.NavigatedTo(), 1)
	assert.Empty(t, f.observer.started)

	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResearchNicheSearchFailure(t *testing.T) {
	f := newFixture(t, serp)
	f.driver.NavigateFunc = func(string) error {
		return browser.Errorf(browser.KindDriverFault, "navigate", "tab crashed")
	}

	out, err := f.r.ResearchNiche(context.Background(), "pet grooming")
	require.NoError(t, err)
	assert.Equal(t, common.OutcomeNoResults, out.Status)
	assert.Contains(t, out.Message, "Search failed")
}

func TestResearchNicheSessionFailure(t *testing.T) {
	f := newFixture(t, serp)
	f.provider.EnsureErr = browser.Errorf(browser.KindDriverFault, "ensure", "chrome not found")

	out, err := f.r.ResearchNiche(context.Background(), "pet grooming")
	require.Error(t, err)
	assert.Equal(t, common.OutcomeFailed, out.Status)
	assert.Equal(t, StateFailed, f.r.State())
	assert.Empty(t, f.driver.NavigatedTo())
}

func TestResearchNicheRecoversBrowserBetweenSites(t *testing.T) {
	f := newFixture(t, serp)
	fresh := browsertest.New(f.driver.Pages)
	f.provider.OnEnsure = func(p *browsertest.Provider) {
		// the run's own check, then one per site; the browser dies after the first site
		if p.Ensures == 3 {
			f.driver.NavigateFunc = func(string) error {
				return browser.Errorf(browser.KindDriverFault, "navigate", "websocket closed")
			}
			p.D = fresh
		}
	}

	out, err := f.r.ResearchNiche(context.Background(), "pet grooming")
	require.NoError(t, err)

	assert.Equal(t, 3, f.provider.Ensures)
	assert.Equal(t, []string{betaURL}, fresh.NavigatedTo())
	require.Len(t, out.Records, 2)
	assert.Equal(t, common.StatusSuccess, out.Records[0].Status)
	assert.Equal(t, common.StatusSuccess, out.Records[1].Status)
	assert.Equal(t, "Beta Report", out.Records[1].Title)
}

func TestVisitSiteFailsWithoutSession(t *testing.T) {
	f := newFixture(t, serp)
	f.provider.EnsureErr = browser.Errorf(browser.KindDriverFault, "ensure", "chrome not found")

	rec := f.r.VisitSite(context.Background(), common.SearchResult{URL: alphaURL, Title: "Alpha"})

	assert.Equal(t, common.StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "chrome not found")
	assert.Equal(t, "Alpha", rec.Title)
	assert.Empty(t, f.driver.NavigatedTo())
}

func TestResearchNicheRequiresNiche(t *testing.T) {
	f := newFixture(t, serp)

	out, err := f.r.ResearchNiche(context.Background(), "   ")
	assert.True(t, browser.IsKind(err, browser.KindInvalid))
	assert.Equal(t, common.OutcomeFailed, out.Status)
}

func TestResearchNicheStopsWhenCancelled(t *testing.T) {
	f := newFixture(t, serp)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.observer.onFinish = cancel

	out, err := f.r.ResearchNiche(ctx, "pet grooming")
	require.NoError(t, err)

	assert.Equal(t, common.OutcomeCompleted, out.Status)
	assert.Equal(t, 1, out.WebsitesAnalyzed)
	assert.Contains(t, out.Message, "Interrupted after 1 of 2")
	assert.Len(t, readDataset(t, out.DataFilename), 1)
}

func TestVisitSiteRecordsContentError(t *testing.T) {
	f := newFixture(t, serp)
	f.driver.SourceErr = errors.New("target closed")

	rec := f.r.VisitSite(context.Background(), common.SearchResult{Position: 1, Title: "Alpha", URL: alphaURL})

	assert.Equal(t, common.StatusPartial, rec.Status)
	assert.Nil(t, rec.Content)
	require.NotNil(t, rec.ContentError)
	assert.Contains(t, rec.ContentError.Error, "target closed")
	assert.Equal(t, "Alpha Guide", rec.ContentError.Title)
	assert.Contains(t, rec.Error, "extract content")
	assert.Len(t, rec.Screenshots, 2)
}

func TestVisitSiteScreenshotFailureIsPartial(t *testing.T) {
	f := newFixture(t, serp)
	f.driver.ScreenshotErr = errors.New("capture failed")

	rec := f.r.VisitSite(context.Background(), common.SearchResult{URL: alphaURL})

	assert.Equal(t, common.StatusPartial, rec.Status)
	assert.NotNil(t, rec.Content)
	assert.Empty(t, rec.Screenshots)
	assert.Contains(t, rec.Error, "screenshot")
}

func TestVisitSiteScrollsDown(t *testing.T) {
	f := newFixture(t, serp)

	rec := f.r.VisitSite(context.Background(), common.SearchResult{URL: alphaURL})
	require.Equal(t, common.StatusSuccess, rec.Status)

	scrolls := 0
	for _, s := range f.driver.EvaluatedScripts() {
		if strings.Contains(s, "const total = 700;") {
			scrolls++
		}
	}
	assert.Equal(t, 3, scrolls)
}

func TestVisitSiteDetectsBotChallenge(t *testing.T) {
	f := newFixture(t, serp)
	f.driver.Pages[alphaURL] = &browsertest.Page{
		Title: "Just a moment...",
		HTML:  `<html><body><div class="g-recaptcha" data-sitekey="x"></div><p>Please verify you are human.</p></body></html>`,
	}

	rec := f.r.VisitSite(context.Background(), common.SearchResult{URL: alphaURL})
	assert.True(t, rec.DetectedBot)
	assert.NotEmpty(t, rec.DetectionSrc)
}
