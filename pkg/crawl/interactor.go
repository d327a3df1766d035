package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/research/internal/browser"
	"github.com/go-scripts/research/internal/metrics"
)

// TextStrategy builds a locator that matches elements by their visible text
type TextStrategy struct {
	Name  string
	Build func(text string) browser.Locator
}

var (
	containsText = TextStrategy{Name: "contains-text", Build: func(t string) browser.Locator {
		return browser.XPath("//*[contains(text(), " + XPathLiteral(t) + ")]")
	}}
	exactText = TextStrategy{Name: "exact-text", Build: func(t string) browser.Locator {
		return browser.XPath("//*[text()=" + XPathLiteral(t) + "]")
	}}
	anchorText = TextStrategy{Name: "anchor-text", Build: func(t string) browser.Locator {
		return browser.XPath("//a[contains(., " + XPathLiteral(t) + ")]")
	}}
	buttonText = TextStrategy{Name: "button-text", Build: func(t string) browser.Locator {
		return browser.XPath("//button[contains(., " + XPathLiteral(t) + ")]")
	}}
	titleAttr = TextStrategy{Name: "title-attribute", Build: func(t string) browser.Locator {
		return browser.XPath("//*[contains(@title, " + XPathLiteral(t) + ")]")
	}}
	ariaLabel = TextStrategy{Name: "aria-label", Build: func(t string) browser.Locator {
		return browser.XPath("//*[contains(@aria-label, " + XPathLiteral(t) + ")]")
	}}
)

// FindStrategies are tried in order by FindByText
var FindStrategies = []TextStrategy{containsText, exactText, anchorText, buttonText}

// ClickStrategies are tried in order by ClickByText
var ClickStrategies = []TextStrategy{containsText, exactText, anchorText, buttonText, titleAttr, ariaLabel}

// XPathLiteral quotes s as an XPath string literal. Strings containing both
// quote characters are built with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// Match reports which strategy found elements and how many
type Match struct {
	Strategy string
	Count    int
}

// ClickResult reports how an element was clicked
type ClickResult struct {
	Strategy string
	Scripted bool
	Href     string
}

// Interactor finds, clicks and types into page elements
type Interactor struct {
	provider browser.Provider
	human    *Humanizer
	logger   *log.Logger

	findStrategies  []TextStrategy
	clickStrategies []TextStrategy
}

// NewInteractor creates an Interactor using the default text strategies
func NewInteractor(p browser.Provider, h *Humanizer, logger *log.Logger) *Interactor {
	return &Interactor{
		provider:        p,
		human:           h,
		logger:          logger,
		findStrategies:  FindStrategies,
		clickStrategies: ClickStrategies,
	}
}

// FindByText returns the first strategy that locates at least one element containing text
func (i *Interactor) FindByText(ctx context.Context, text string) (Match, error) {
	d, err := i.provider.Driver(ctx)
	if err != nil {
		return Match{}, err
	}

	var faults []error
	for _, s := range i.findStrategies {
		found, err := d.FindAll(ctx, s.Build(text))
		if err != nil {
			if ctx.Err() != nil {
				return Match{}, browser.Classify("find by text", ctx.Err())
			}
			i.logger.Debug("Text strategy failed", "strategy", s.Name, "err", err)
			faults = append(faults, err)
			continue
		}
		if len(found) > 0 {
			return Match{Strategy: s.Name, Count: len(found)}, nil
		}
	}

	if len(faults) == len(i.findStrategies) {
		return Match{}, browser.NewError(browser.KindDriverFault, "find by text", text, errors.Join(faults...))
	}
	return Match{}, browser.Errorf(browser.KindNotFound, "find by text", "no elements found containing %q", text)
}

// ClickByText clicks the first interactable element containing text. Each
// strategy's candidates are tried in order. A stale reference ends the
// strategy early. When no strategy succeeds, a scripted click is attempted
// on the first XPath match. If every lookup failed the result is a driver
// fault rather than not found.
func (i *Interactor) ClickByText(ctx context.Context, text string) (ClickResult, error) {
	d, err := i.provider.Driver(ctx)
	if err != nil {
		return ClickResult{}, err
	}

	matched := false
	var faults []error
	for _, s := range i.clickStrategies {
		found, err := d.FindAll(ctx, s.Build(text))
		if err != nil {
			if ctx.Err() != nil {
				return ClickResult{}, browser.Classify("click by text", ctx.Err())
			}
			i.logger.Debug("Click strategy failed", "strategy", s.Name, "err", err)
			faults = append(faults, err)
			continue
		}
		if len(found) == 0 {
			continue
		}
		matched = true

	candidates:
		for _, el := range found {
			err := i.click(ctx, el)
			switch {
			case err == nil:
				metrics.Clicks.WithLabelValues(s.Name).Inc()
				i.logger.Info("Clicked element", "text", text, "strategy", s.Name)
				return ClickResult{Strategy: s.Name}, nil
			case browser.IsKind(err, browser.KindStale):
				i.logger.Debug("Element went stale", "strategy", s.Name)
				break candidates
			case browser.IsKind(err, browser.KindNotInteractable):
				continue
			case ctx.Err() != nil:
				return ClickResult{}, browser.Classify("click by text", ctx.Err())
			default:
				return ClickResult{}, browser.NewError(browser.KindOf(err), "click by text", text, err)
			}
		}
	}

	clicked, err := i.scriptedClick(ctx, d, containsText.Build(text))
	if err == nil && clicked {
		metrics.Clicks.WithLabelValues("script").Inc()
		i.logger.Info("Clicked element with script", "text", text)
		return ClickResult{Strategy: "script", Scripted: true}, nil
	}

	if matched {
		return ClickResult{}, browser.Errorf(browser.KindNotInteractable, "click by text", "could not click any element with text %q", text)
	}
	if len(faults) > 0 && len(faults) == len(i.clickStrategies) {
		if err != nil {
			faults = append(faults, err)
		}
		return ClickResult{}, browser.NewError(browser.KindDriverFault, "click by text", text, errors.Join(faults...))
	}
	return ClickResult{}, browser.Errorf(browser.KindNotFound, "click by text", "no element found with text %q", text)
}

func (i *Interactor) click(ctx context.Context, el browser.Element) error {
	if err := el.ScrollIntoView(ctx); err != nil {
		return err
	}
	if err := i.human.Pause(ctx); err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	return i.human.Pause(ctx)
}

const scriptedClickJS = `(() => {
	const node = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!node) { return false; }
	node.click();
	return true;
})()`

func (i *Interactor) scriptedClick(ctx context.Context, d browser.Driver, loc browser.Locator) (bool, error) {
	expr, err := json.Marshal(loc.Value)
	if err != nil {
		return false, err
	}
	var clicked bool
	if err := d.Eval(ctx, fmt.Sprintf(scriptedClickJS, expr), &clicked); err != nil {
		return false, err
	}
	if clicked {
		if err := i.human.Pause(ctx); err != nil {
			return true, err
		}
	}
	return clicked, nil
}

// ClickByURLSubstring clicks the first link whose href contains pattern, case-insensitively
func (i *Interactor) ClickByURLSubstring(ctx context.Context, pattern string) (ClickResult, error) {
	d, err := i.provider.Driver(ctx)
	if err != nil {
		return ClickResult{}, err
	}
	links, err := d.FindAll(ctx, browser.CSS("a"))
	if err != nil {
		return ClickResult{}, browser.NewError(browser.KindOf(err), "click by url", pattern, err)
	}

	needle := strings.ToLower(pattern)
	for _, el := range links {
		href, ok, err := el.Attr(ctx, "href")
		if err != nil || !ok || !strings.Contains(strings.ToLower(href), needle) {
			continue
		}
		if err := i.click(ctx, el); err != nil {
			return ClickResult{}, browser.NewError(browser.KindOf(err), "click by url", href, err)
		}
		metrics.Clicks.WithLabelValues("url").Inc()
		i.logger.Info("Clicked link", "href", href)
		return ClickResult{Strategy: "url", Href: href}, nil
	}
	return ClickResult{}, browser.Errorf(browser.KindNotFound, "click by url", "no link found with URL containing %q", pattern)
}

// EnterText clears the first element matched by selector and types text into it
// one character at a time. kind is one of id, name, css or xpath.
func (i *Interactor) EnterText(ctx context.Context, selector, text, kind string) error {
	by, err := browser.ParseBy(kind)
	if err != nil {
		return err
	}
	d, err := i.provider.Driver(ctx)
	if err != nil {
		return err
	}

	loc := browser.Locator{By: by, Value: selector}
	found, err := d.FindAll(ctx, loc)
	if err != nil {
		return browser.NewError(browser.KindOf(err), "enter text", loc.String(), err)
	}
	if len(found) == 0 {
		return browser.Errorf(browser.KindNotFound, "enter text", "element with %s %q not found", by, selector)
	}

	el := found[0]
	if err := el.Clear(ctx); err != nil {
		return browser.NewError(browser.KindOf(err), "enter text", loc.String(), err)
	}
	delay := i.human.Config().KeystrokeDelay
	for _, r := range text {
		if err := el.SendKeys(ctx, string(r)); err != nil {
			return browser.NewError(browser.KindOf(err), "enter text", loc.String(), err)
		}
		if err := i.human.SleepRange(ctx, delay); err != nil {
			return browser.Classify("enter text", err)
		}
	}
	if err := i.human.Pause(ctx); err != nil {
		return browser.Classify("enter text", err)
	}
	i.logger.Debug("Entered text", "selector", loc.String(), "chars", len([]rune(text)))
	return nil
}

// WaitFor blocks until an element matched by selector is present or timeout elapses.
// kind is one of id, css or xpath.
func (i *Interactor) WaitFor(ctx context.Context, selector, kind string, timeout time.Duration) error {
	by, err := browser.ParseBy(kind)
	if err != nil {
		return err
	}
	if by == browser.ByName {
		return browser.Errorf(browser.KindInvalid, "wait for", "unsupported selector kind %q", kind)
	}
	d, err := i.provider.Driver(ctx)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	loc := browser.Locator{By: by, Value: selector}
	err = d.WaitPresent(waitCtx, loc)
	if err == nil {
		return nil
	}
	if browser.IsKind(err, browser.KindTimeout) || errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return browser.NewError(browser.KindTimeout, "wait for",
			fmt.Sprintf("timed out waiting for element with %s: %s", by, selector), err)
	}
	return browser.NewError(browser.KindOf(err), "wait for", loc.String(), err)
}
