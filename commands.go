package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-scripts/research/internal/analysis"
	"github.com/go-scripts/research/internal/progress"
	"github.com/go-scripts/research/internal/research"
	"github.com/go-scripts/research/pkg/common"
	"github.com/go-scripts/research/ui"
)

var stdout io.Writer = os.Stdout

func (g *Globals) config() (common.Configuration, error) {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return cfg, err
	}
	g.apply(&cfg)
	return cfg, nil
}

func (g *Globals) app() (*App, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, newLogger(cfg.Debug))
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// ResearchCmd researches a niche end to end
type ResearchCmd struct {
	Niche    string `arg:"" help:"Business niche to research"`
	MaxSites int    `help:"Visit at most this many results" name:"max-sites"`
	Analyze  bool   `help:"Send the analysis brief to the configured chat endpoint"`
}

func (c *ResearchCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.app()
	if err != nil {
		return err
	}
	defer a.Close()
	if c.MaxSites > 0 {
		a.cfg.Research.MaxSites = c.MaxSites
	}

	tracker := progress.New(stdout, stdout == os.Stdout && isTerminal(os.Stdout))
	r := research.New(a.cfg.Research, research.Deps{
		Session:   a.session,
		Navigator: a.navigator,
		Extractor: a.extractor,
		Writer:    a.writer,
		Humanizer: a.human,
		Observer:  tracker,
		Logger:    a.logger,
	})

	out, err := r.ResearchNiche(ctx, c.Niche)
	fmt.Fprintln(stdout)
	if len(out.Records) > 0 {
		fmt.Fprintln(stdout, ui.RenderResults(out.Records, 120))
	}
	fmt.Fprintln(stdout, ui.RenderSummary(ui.NewRunStats(out, out.Records, tracker.Elapsed())))
	if err != nil {
		return err
	}

	if out.Status == common.OutcomeCompleted && (c.Analyze || a.cfg.Analysis.Enabled) {
		return a.analyze(ctx, out.AnalysisPrompt)
	}
	return nil
}

// analyze sends brief to the chat endpoint and saves the reply next to the dataset
func (a *App) analyze(ctx context.Context, brief string) error {
	client, err := analysis.NewClient(a.cfg.Analysis, a.logger)
	if err != nil {
		return err
	}
	reply, err := client.Complete(ctx, brief)
	if err != nil {
		return err
	}
	path, err := a.writer.WriteText("analysis", ".md", reply, time.Now())
	if err != nil {
		return err
	}
	a.logger.Info("Saved analysis", "file", path)
	return nil
}

// SearchCmd prints the organic results for a query
type SearchCmd struct {
	Query string `arg:"" help:"Search query"`
}

func (c *SearchCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.app()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.Ensure(ctx); err != nil {
		return err
	}
	if err := a.navigator.Search(ctx, c.Query); err != nil {
		return err
	}
	results, err := a.extractor.SearchResults(ctx)
	if err != nil {
		return err
	}
	return printJSON(results)
}

// ExtractCmd prints the structured content of a page
type ExtractCmd struct {
	URL        string `arg:"" help:"Page to extract"`
	Screenshot bool   `help:"Save a screenshot of the page"`
}

func (c *ExtractCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.app()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.Ensure(ctx); err != nil {
		return err
	}
	if _, err := a.navigator.Navigate(ctx, c.URL); err != nil {
		return err
	}
	if c.Screenshot {
		if err := a.screenshot(ctx); err != nil {
			a.logger.Warn("Screenshot failed", "err", err)
		}
	}
	content, err := a.extractor.PageContent(ctx)
	if err != nil {
		return err
	}
	return printJSON(content)
}

func (a *App) screenshot(ctx context.Context) error {
	png, err := a.navigator.Screenshot(ctx)
	if err != nil {
		return err
	}
	path, err := a.writer.WriteScreenshot(png, time.Now())
	if err != nil {
		return err
	}
	a.logger.Info("Saved screenshot", "file", path)
	return nil
}

// ClickCmd clicks the element showing some text on a page
type ClickCmd struct {
	URL        string `arg:"" help:"Page to load"`
	Text       string `arg:"" help:"Visible text of the element to click"`
	Href       bool   `help:"Match Text against link targets instead of visible text"`
	Screenshot bool   `help:"Save a screenshot after clicking"`
}

func (c *ClickCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.app()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.session.Ensure(ctx); err != nil {
		return err
	}
	if _, err := a.navigator.Navigate(ctx, c.URL); err != nil {
		return err
	}

	click := a.interactor.ClickByText
	if c.Href {
		click = a.interactor.ClickByURLSubstring
	}
	res, err := click(ctx, c.Text)
	if err != nil {
		return err
	}
	a.logger.Info("Clicked element", "text", c.Text, "strategy", res.Strategy, "scripted", res.Scripted)

	if c.Screenshot {
		return a.screenshot(ctx)
	}
	return nil
}

// IdeasCmd prints a business idea brief
type IdeasCmd struct {
	Interest   string `help:"Area of interest" required:""`
	Industry   string `help:"Target industry" required:""`
	Budget     string `help:"Available budget" required:""`
	SkillLevel string `help:"Skill level of the founder" name:"skill-level" required:""`
	Analyze    bool   `help:"Send the brief to the configured chat endpoint"`
}

func (c *IdeasCmd) Run(ctx context.Context, g *Globals) error {
	brief, err := analysis.BuildIdeasBrief(analysis.IdeasRequest{
		Interest:   c.Interest,
		Industry:   c.Industry,
		Budget:     c.Budget,
		SkillLevel: c.SkillLevel,
	})
	if err != nil {
		return err
	}
	if !c.Analyze {
		_, err := fmt.Fprintln(stdout, brief)
		return err
	}

	cfg, err := g.config()
	if err != nil {
		return err
	}
	client, err := analysis.NewClient(cfg.Analysis, newLogger(cfg.Debug))
	if err != nil {
		return err
	}
	reply, err := client.Complete(ctx, brief)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, reply)
	return err
}
