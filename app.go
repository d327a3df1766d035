package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/research/internal/browser"
	"github.com/go-scripts/research/internal/extract"
	"github.com/go-scripts/research/internal/metrics"
	"github.com/go-scripts/research/internal/writer"
	"github.com/go-scripts/research/pkg/common"
	"github.com/go-scripts/research/pkg/crawl"
	"github.com/go-scripts/research/pkg/useragent"
)

// App holds the components shared by every command
type App struct {
	cfg        common.Configuration
	logger     *log.Logger
	session    *browser.Session
	human      *crawl.Humanizer
	navigator  *crawl.Navigator
	interactor *crawl.Interactor
	extractor  *extract.Extractor
	writer     *writer.FileWriter
	metrics    *metrics.Server
}

func newLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// newApp wires the browser session and the components that drive it.
// Chrome is not started until the first command needs it.
func newApp(cfg common.Configuration, logger *log.Logger) (*App, error) {
	w, err := writer.New(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	ua := cfg.Browser.UserAgent
	if cfg.Browser.RotateUserAgent || ua == "" {
		ua = useragent.NewPool(nil).Random()
	}
	session := browser.NewSession(browser.ChromeOptions{
		Headless:        cfg.Browser.Headless,
		UserAgent:       ua,
		RemoteURL:       cfg.Browser.RemoteURL,
		ViewportWidth:   cfg.Browser.ViewportWidth,
		ViewportHeight:  cfg.Browser.ViewportHeight,
		PageLoadTimeout: cfg.Browser.PageLoadTimeout,
		ElementTimeout:  cfg.Browser.ElementTimeout,
		Logger:          logger,
	})

	human := crawl.NewHumanizer(cfg.Humanize)
	search := extract.DefaultSearchOptions()
	search.EngineDomain = cfg.Research.EngineDomain
	search.Limit = cfg.Research.MaxSites
	content := extract.DefaultContentOptions()
	content.MaxTextLength = cfg.Research.MaxTextLength

	app := &App{
		cfg:     cfg,
		logger:  logger,
		session: session,
		human:   human,
		navigator: crawl.NewNavigator(session, human, crawl.NavigatorConfig{
			MaxRetries:    cfg.Research.MaxRetries,
			SearchURL:     cfg.Research.SearchURL,
			MaxTextLength: cfg.Research.MaxTextLength,
		}, logger),
		interactor: crawl.NewInteractor(session, human, logger),
		extractor:  extract.New(session, search, content, logger),
		writer:     w,
	}
	if cfg.MetricsPort > 0 {
		app.metrics = metrics.Start(cfg.MetricsPort, logger)
	}
	return app, nil
}

// Close stops the browser and the metrics server
func (a *App) Close() {
	if err := a.session.Close(); err != nil {
		a.logger.Warn("Failed to close browser", "err", err)
	}
	if err := a.metrics.Stop(context.Background()); err != nil {
		a.logger.Warn("Failed to stop metrics server", "err", err)
	}
}
