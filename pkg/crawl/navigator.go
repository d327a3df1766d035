package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp/kb"

	"github.com/go-scripts/research/internal/browser"
	"github.com/go-scripts/research/internal/metrics"
	"github.com/go-scripts/research/pkg/common"
)

// NavigatorConfig configures page loads and searches
type NavigatorConfig struct {
	MaxRetries    int
	SearchURL     string
	MaxTextLength int
	// ScrollToBottomLimit bounds ScrollToBottom on pages that keep growing
	ScrollToBottomLimit int
}

// Navigator loads pages, scrolls them like a reader would and runs searches
type Navigator struct {
	provider browser.Provider
	human    *Humanizer
	cfg      NavigatorConfig
	logger   *log.Logger
}

// NewNavigator creates a Navigator
func NewNavigator(p browser.Provider, h *Humanizer, cfg NavigatorConfig, logger *log.Logger) *Navigator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = "https://www.google.com/search"
	}
	if cfg.ScrollToBottomLimit <= 0 {
		cfg.ScrollToBottomLimit = 200
	}
	return &Navigator{provider: p, human: h, cfg: cfg, logger: logger}
}

// NormalizeURL prefixes scheme-less URLs with https://
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// Navigate loads rawURL, retrying page-load timeouts, then pauses and scrolls.
// It returns the normalized URL that was loaded.
func (n *Navigator) Navigate(ctx context.Context, rawURL string) (string, error) {
	target := NormalizeURL(rawURL)
	d, err := n.provider.Driver(ctx)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= n.cfg.MaxRetries; attempt++ {
		n.logger.Debug("Navigating", "url", target, "attempt", attempt)
		err := d.Navigate(ctx, target)
		if err == nil {
			metrics.NavigationAttempts.WithLabelValues("success").Inc()
			if err := n.human.Pause(ctx); err != nil {
				return "", browser.Classify("navigate", err)
			}
			n.SimulateScroll(ctx)
			return target, nil
		}

		if !browser.IsKind(err, browser.KindTimeout) || ctx.Err() != nil {
			metrics.NavigationAttempts.WithLabelValues("error").Inc()
			return "", browser.NewError(browser.KindOf(err), "navigate", target, err)
		}

		metrics.NavigationAttempts.WithLabelValues("timeout").Inc()
		n.logger.Warn("Timeout loading page, retrying", "url", target, "attempt", attempt, "max", n.cfg.MaxRetries)
		lastErr = err
	}

	return "", browser.NewError(browser.KindTimeout, "navigate",
		fmt.Sprintf("%s failed after %d attempts", target, n.cfg.MaxRetries), lastErr)
}

// SimulateScroll scrolls through the page in random steps with occasional
// upward corrections. Failures are logged and otherwise ignored.
func (n *Navigator) SimulateScroll(ctx context.Context) {
	d, err := n.provider.Driver(ctx)
	if err != nil {
		n.logger.Warn("Scroll simulation skipped", "err", err)
		return
	}
	cfg := n.human.Config()

	steps := n.human.Int(cfg.ScrollSteps)
	for i := 0; i < steps; i++ {
		if err := d.Eval(ctx, fmt.Sprintf("window.scrollBy(0, %d);", n.human.Int(cfg.ScrollDistance)), nil); err != nil {
			n.logger.Warn("Scroll simulation failed", "err", err)
			return
		}
		if err := n.human.SleepRange(ctx, cfg.ScrollPause); err != nil {
			return
		}

		if n.human.Chance(cfg.CorrectionChance) {
			if err := d.Eval(ctx, fmt.Sprintf("window.scrollBy(0, -%d);", n.human.Int(cfg.CorrectionDistance)), nil); err != nil {
				n.logger.Warn("Scroll simulation failed", "err", err)
				return
			}
			if err := n.human.SleepRange(ctx, cfg.CorrectionPause); err != nil {
				return
			}
		}
	}

	if err := d.Eval(ctx, "window.scrollTo(0, document.body.scrollHeight);", nil); err != nil {
		n.logger.Warn("Scroll simulation failed", "err", err)
		return
	}
	if err := n.human.Pause(ctx); err != nil {
		return
	}
	settle := fmt.Sprintf("window.scrollTo(0, Math.max(document.body.scrollHeight / 3, %d));", cfg.SettleFloor)
	if err := d.Eval(ctx, settle, nil); err != nil {
		n.logger.Warn("Scroll simulation failed", "err", err)
		return
	}
	n.logger.Debug("Simulated scrolling", "steps", steps)
}

const smoothScrollJS = `(() => {
	const total = %d;
	const duration = 1000;
	const start = performance.now();
	let done = 0;
	const step = (now) => {
		const progress = Math.min((now - start) / duration, 1);
		const eased = 1 - Math.pow(1 - progress, 3);
		const target = Math.round(total * eased);
		window.scrollBy(0, target - done);
		done = target;
		if (progress < 1) {
			window.requestAnimationFrame(step);
		}
	};
	window.requestAnimationFrame(step);
})();`

// ScrollDown smoothly scrolls the page by px pixels
func (n *Navigator) ScrollDown(ctx context.Context, px int) error {
	d, err := n.provider.Driver(ctx)
	if err != nil {
		return err
	}
	if err := d.Eval(ctx, fmt.Sprintf(smoothScrollJS, px), nil); err != nil {
		return browser.NewError(browser.KindOf(err), "scroll down", fmt.Sprintf("%d pixels", px), err)
	}
	if err := n.human.SleepRange(ctx, n.human.Config().ScrollDownPause); err != nil {
		return browser.Classify("scroll down", err)
	}
	return nil
}

type scrollPosition struct {
	Total    float64 `json:"total"`
	Offset   float64 `json:"offset"`
	Viewport float64 `json:"viewport"`
}

const scrollPositionJS = `({total: document.body.scrollHeight, offset: window.pageYOffset, viewport: window.innerHeight})`

// ScrollToBottom scrolls in viewport-sized steps until the end of the page is visible
func (n *Navigator) ScrollToBottom(ctx context.Context) error {
	d, err := n.provider.Driver(ctx)
	if err != nil {
		return err
	}
	cfg := n.human.Config()

	lastOffset := -1.0
	steps := 0
	for ; steps < n.cfg.ScrollToBottomLimit; steps++ {
		var pos scrollPosition
		if err := d.Eval(ctx, scrollPositionJS, &pos); err != nil {
			return browser.NewError(browser.KindOf(err), "scroll to bottom", "", err)
		}
		if pos.Offset+pos.Viewport >= pos.Total || pos.Offset == lastOffset {
			break
		}
		lastOffset = pos.Offset

		if err := d.Eval(ctx, fmt.Sprintf("window.scrollBy(0, %d);", n.human.Int(cfg.ScrollDistance)), nil); err != nil {
			return browser.NewError(browser.KindOf(err), "scroll to bottom", "", err)
		}
		if err := n.human.SleepRange(ctx, cfg.BottomScrollPause); err != nil {
			return browser.Classify("scroll to bottom", err)
		}
	}
	if steps == n.cfg.ScrollToBottomLimit {
		n.logger.Warn("Page kept growing while scrolling to bottom", "steps", steps)
	}

	if err := d.Eval(ctx, "window.scrollTo(0, document.body.scrollHeight);", nil); err != nil {
		return browser.NewError(browser.KindOf(err), "scroll to bottom", "", err)
	}
	return browser.Classify("scroll to bottom", n.human.Pause(ctx))
}

// SearchURL returns the results page URL for query
func (n *Navigator) SearchURL(query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("hl", "en")
	return n.cfg.SearchURL + "?" + v.Encode()
}

// Search loads the results page for query, waits SearchPause for the
// results to render and scrolls through it
func (n *Navigator) Search(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return browser.Errorf(browser.KindInvalid, "search", "empty query")
	}
	if _, err := n.Navigate(ctx, n.SearchURL(query)); err != nil {
		return browser.NewError(browser.KindOf(err), "search", query, err)
	}
	if err := n.human.Sleep(ctx, n.human.Config().SearchPause); err != nil {
		return browser.Classify("search", err)
	}
	n.SimulateScroll(ctx)
	n.logger.Info("Searched", "query", query)
	return nil
}

// Screenshot captures the visible viewport as PNG
func (n *Navigator) Screenshot(ctx context.Context) ([]byte, error) {
	d, err := n.provider.Driver(ctx)
	if err != nil {
		return nil, err
	}
	return d.Screenshot(ctx)
}

// Title returns the current page title
func (n *Navigator) Title(ctx context.Context) (string, error) {
	d, err := n.provider.Driver(ctx)
	if err != nil {
		return "", err
	}
	return d.Title(ctx)
}

// PageSource returns the current page HTML, truncated to the configured length
func (n *Navigator) PageSource(ctx context.Context) (string, error) {
	d, err := n.provider.Driver(ctx)
	if err != nil {
		return "", err
	}
	src, err := d.Source(ctx)
	if err != nil {
		return "", err
	}
	return common.Truncate(src, n.cfg.MaxTextLength), nil
}

// PressEnter sends Enter to the focused element
func (n *Navigator) PressEnter(ctx context.Context) error {
	d, err := n.provider.Driver(ctx)
	if err != nil {
		return err
	}
	if err := d.PressKey(ctx, kb.Enter); err != nil {
		return err
	}
	return n.human.Pause(ctx)
}
