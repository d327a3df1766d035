// Package research runs the end-to-end niche research workflow: search,
// visit each organic result, extract its content and persist the dataset.
package research

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/go-scripts/research/internal/analysis"
	"github.com/go-scripts/research/internal/browser"
	"github.com/go-scripts/research/internal/detect"
	"github.com/go-scripts/research/internal/extract"
	"github.com/go-scripts/research/internal/metrics"
	"github.com/go-scripts/research/internal/queue"
	"github.com/go-scripts/research/internal/writer"
	"github.com/go-scripts/research/pkg/common"
	"github.com/go-scripts/research/pkg/crawl"
)

// NoResultsMessage is reported when the search page yields nothing to visit
const NoResultsMessage = "No search results found. Please try a different search query."

// Deps are the collaborators a Researcher drives
type Deps struct {
	Session   browser.Manager
	Navigator *crawl.Navigator
	Extractor *extract.Extractor
	Writer    *writer.FileWriter
	Humanizer *crawl.Humanizer
	Detectors []detect.Detector
	Observer  Observer
	Logger    *log.Logger
	Now       func() time.Time
}

// Researcher researches one niche at a time
type Researcher struct {
	cfg       common.Research
	session   browser.Manager
	nav       *crawl.Navigator
	extractor *extract.Extractor
	writer    *writer.FileWriter
	human     *crawl.Humanizer
	detectors []detect.Detector
	observer  Observer
	logger    *log.Logger
	now       func() time.Time

	mu    sync.Mutex
	state State
}

// New creates a Researcher
func New(cfg common.Research, deps Deps) *Researcher {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Detectors == nil {
		deps.Detectors = detect.DefaultDetectors()
	}
	return &Researcher{
		cfg:       cfg,
		session:   deps.Session,
		nav:       deps.Navigator,
		extractor: deps.Extractor,
		writer:    deps.Writer,
		human:     deps.Humanizer,
		detectors: deps.Detectors,
		observer:  deps.Observer,
		logger:    deps.Logger,
		now:       deps.Now,
	}
}

// Query builds the search query for niche
func Query(niche, qualifiers string) string {
	return strings.TrimSpace(niche + " " + qualifiers)
}

// State returns the phase the current run is in
func (r *Researcher) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Researcher) setState(s State) {
	r.mu.Lock()
	prev := r.state
	r.state = s
	r.mu.Unlock()

	r.logger.Debug("Research state changed", "from", prev, "to", s)
	r.observer.StateChanged(s)
}

// ResearchNiche searches for niche, visits the organic results one after
// another and writes the collected records to a dataset file. Per-site
// failures are recorded on the site's record and never end the run.
func (r *Researcher) ResearchNiche(ctx context.Context, niche string) (common.ResearchOutcome, error) {
	niche = strings.TrimSpace(niche)
	out := common.ResearchOutcome{
		Niche: niche,
		Query: Query(niche, r.cfg.QueryQualifiers),
		RunID: uuid.NewString(),
	}
	if niche == "" {
		return r.fail(out, browser.NewError(browser.KindInvalid, "research", "niche is required", nil))
	}
	logger := r.logger.With("run", out.RunID)
	logger.Info("Starting niche research", "niche", niche)

	status, err := r.session.Ensure(ctx)
	if err != nil {
		return r.fail(out, fmt.Errorf("failed to start browser session: %w", err))
	}
	logger.Debug("Browser session ready", "status", status)

	r.setState(StateSearching)
	if err := r.nav.Search(ctx, out.Query); err != nil {
		logger.Error("Search failed", "query", out.Query, "err", err)
		return r.noResults(out, fmt.Sprintf("Search failed: %v", err)), nil
	}
	r.checkPage(ctx, logger, r.nav.SearchURL(out.Query))

	r.setState(StateExtractingResults)
	results, err := r.extractor.SearchResults(ctx)
	if err != nil {
		logger.Warn("No search results extracted", "err", err)
	}
	r.observer.SearchCompleted(out.Query, len(results))
	if len(results) == 0 {
		return r.noResults(out, NoResultsMessage), nil
	}

	q := queue.New(r.cfg.MaxSites)
	q.AddAll(results)
	total := q.Total()
	logger.Info("Visiting search results", "count", total)

	records := make([]common.WebsiteRecord, 0, total)
	for i := 1; ; i++ {
		if ctx.Err() != nil {
			logger.Warn("Research interrupted", "visited", len(records), "total", total)
			out.Message = fmt.Sprintf("Interrupted after %d of %d websites", len(records), total)
			break
		}
		res, ok := q.Next()
		if !ok {
			break
		}

		r.observer.SiteStarted(i, total, res.Title, res.URL)
		rec := r.VisitSite(ctx, res)
		records = append(records, rec)
		r.observer.SiteFinished(i, total, rec.Status)

		if q.Len() > 0 {
			if err := r.human.SleepRange(ctx, r.human.Config().SitePause); err != nil {
				logger.Debug("Pause between sites cut short", "err", err)
			}
		}
	}

	r.setState(StatePersisting)
	path, err := r.writer.WriteDataset(records, r.now())
	if err != nil {
		return r.fail(out, fmt.Errorf("failed to save research data: %w", err))
	}
	logger.Info("Saved research data", "file", path, "websites", len(records))

	r.setState(StateSummarizing)
	brief, err := analysis.BuildAnalysisBrief(records)
	if err != nil {
		return r.fail(out, err)
	}

	out.Status = common.OutcomeCompleted
	out.WebsitesAnalyzed = len(records)
	out.DataFilename = path
	out.AnalysisPrompt = brief
	out.Records = records
	r.setState(StateDone)
	metrics.ResearchRuns.WithLabelValues(out.Status).Inc()
	return out, nil
}

func (r *Researcher) noResults(out common.ResearchOutcome, msg string) common.ResearchOutcome {
	out.Status = common.OutcomeNoResults
	out.Message = msg
	r.setState(StateDone)
	metrics.ResearchRuns.WithLabelValues(out.Status).Inc()
	return out
}

func (r *Researcher) fail(out common.ResearchOutcome, err error) (common.ResearchOutcome, error) {
	out.Status = common.OutcomeFailed
	out.Message = err.Error()
	r.setState(StateFailed)
	r.logger.Error("Research failed", "niche", out.Niche, "err", err)
	metrics.ResearchRuns.WithLabelValues(out.Status).Inc()
	return out, err
}

// checkPage logs a warning when the current page looks like a bot challenge
func (r *Researcher) checkPage(ctx context.Context, logger *log.Logger, url string) {
	page, err := r.currentPage(ctx, url)
	if err != nil {
		logger.Debug("Skipping bot challenge check", "err", err)
		return
	}
	if hit, src := detect.Analyze(page, r.detectors); hit {
		logger.Warn("Search page looks like a bot challenge", "source", src)
	}
}

func (r *Researcher) currentPage(ctx context.Context, url string) (detect.Page, error) {
	html, err := r.nav.PageSource(ctx)
	if err != nil {
		return detect.Page{}, err
	}
	title, err := r.nav.Title(ctx)
	if err != nil {
		return detect.Page{}, err
	}
	return detect.Page{URL: url, Title: title, HTML: html}, nil
}

// VisitSite checks the browser session is alive, then loads result, captures
// it and extracts its content. A dead session or a failed page load yields
// status failed; a failure after the page loaded yields partial.
func (r *Researcher) VisitSite(ctx context.Context, result common.SearchResult) common.WebsiteRecord {
	start := time.Now()
	rec := common.WebsiteRecord{
		URL:       result.URL,
		Title:     result.Title,
		VisitedAt: r.now(),
	}
	logger := r.logger.With("url", result.URL)

	r.setState(StateVisitingSite)
	status, err := r.session.Ensure(ctx)
	if err != nil {
		logger.Error("Browser session unavailable", "err", err)
		rec.Status = common.StatusFailed
		rec.Error = fmt.Sprintf("browser session: %v", err)
		metrics.RecordVisit(rec.Status, false, time.Since(start))
		return rec
	}
	if status == browser.StatusNewlyCreated {
		logger.Warn("Browser session was recreated before visiting site")
	}

	if _, err := r.nav.Navigate(ctx, result.URL); err != nil {
		logger.Error("Failed to load site", "err", err)
		rec.Status = common.StatusFailed
		rec.Error = err.Error()
		metrics.RecordVisit(rec.Status, false, time.Since(start))
		return rec
	}

	var problems []string
	note := func(step string, err error) {
		logger.Warn("Site step failed", "step", step, "err", err)
		problems = append(problems, fmt.Sprintf("%s: %v", step, err))
	}

	if title, err := r.nav.Title(ctx); err != nil {
		note("title", err)
	} else if title != "" {
		rec.Title = title
	}
	r.screenshot(ctx, &rec, note)

	r.setState(StateExtractingContent)
	content, err := r.extractor.PageContent(ctx)
	if err != nil {
		note("extract content", err)
		rec.ContentError = r.contentError(ctx, rec.Title, err)
	} else {
		rec.Content = &content
	}

	for i := 0; i < r.cfg.ScrollRounds; i++ {
		if err := r.nav.ScrollDown(ctx, r.cfg.ScrollDistance); err != nil {
			note("scroll", err)
			break
		}
		if err := r.human.Sleep(ctx, r.cfg.ScrollWait); err != nil {
			note("scroll", err)
			break
		}
	}
	r.screenshot(ctx, &rec, note)

	if page, err := r.currentPage(ctx, result.URL); err != nil {
		note("bot challenge check", err)
	} else if hit, src := detect.Analyze(page, r.detectors); hit {
		logger.Warn("Site looks like a bot challenge", "source", src)
		rec.DetectedBot = true
		rec.DetectionSrc = src
	}

	rec.Status = common.StatusSuccess
	if len(problems) > 0 {
		rec.Status = common.StatusPartial
		rec.Error = strings.Join(problems, "; ")
	}
	metrics.RecordVisit(rec.Status, rec.DetectedBot, time.Since(start))
	logger.Info("Visited site", "status", rec.Status, "screenshots", len(rec.Screenshots))
	return rec
}

func (r *Researcher) screenshot(ctx context.Context, rec *common.WebsiteRecord, note func(string, error)) {
	png, err := r.nav.Screenshot(ctx)
	if err != nil {
		note("screenshot", err)
		return
	}
	path, err := r.writer.WriteScreenshot(png, r.now())
	if err != nil {
		note("screenshot", err)
		return
	}
	rec.Screenshots = append(rec.Screenshots, path)
}

func (r *Researcher) contentError(ctx context.Context, title string, err error) *common.ContentError {
	ce := &common.ContentError{Error: err.Error(), Title: title}
	if src, serr := r.nav.PageSource(ctx); serr == nil {
		ce.RawText = common.Prefix(src, r.cfg.RawTextLength)
	}
	return ce
}
