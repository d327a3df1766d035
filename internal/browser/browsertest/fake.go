// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"sync"

	"github.com/go-scripts/research/internal/browser"
)

// Page is what the fake driver serves for a URL
type Page struct {
	Title string
	HTML  string
	// Elements maps Locator.String() to the elements FindAll returns
	Elements map[string][]*Element
}

// Driver is a scripted browser.Driver. Unset hooks fall back to serving Pages.
type Driver struct {
	mu sync.Mutex

	Pages   map[string]*Page
	Default *Page

	NavigateFunc   func(url string) error
	EvalFunc       func(script string, out any) error
	FindFunc       func(loc browser.Locator) ([]browser.Element, error)
	ScreenshotErr  error
	SourceErr      error
	TitleErr       error
	ScreenshotData []byte

	current     *Page
	currentURL  string
	Navigations []string
	Scripts     []string
	Keys        []string
	Shots       int
	Closed      bool
}

// New creates a fake driver serving pages keyed by URL
func New(pages map[string]*Page) *Driver {
	if pages == nil {
		pages = make(map[string]*Page)
	}
	return &Driver{Pages: pages, ScreenshotData: []byte("\x89PNG\r\n\x1a\nfake")}
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return browser.Classify("navigate", err)
	}
	d.mu.Lock()
	d.Navigations = append(d.Navigations, url)
	hook := d.NavigateFunc
	d.mu.Unlock()

	if hook != nil {
		if err := hook(url); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentURL = url
	if p, ok := d.Pages[url]; ok {
		d.current = p
	} else {
		d.current = d.Default
	}
	return nil
}

// SetPage makes p the current page without a navigation
func (d *Driver) SetPage(url string, p *Page) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentURL = url
	d.current = p
}

func (d *Driver) FindAll(_ context.Context, loc browser.Locator) ([]browser.Element, error) {
	d.mu.Lock()
	hook := d.FindFunc
	page := d.current
	d.mu.Unlock()

	if hook != nil {
		return hook(loc)
	}
	if page == nil {
		return nil, nil
	}
	found := page.Elements[loc.String()]
	elements := make([]browser.Element, 0, len(found))
	for _, e := range found {
		elements = append(elements, e)
	}
	return elements, nil
}

func (d *Driver) WaitPresent(ctx context.Context, loc browser.Locator) error {
	found, err := d.FindAll(ctx, loc)
	if err != nil {
		return err
	}
	if len(found) > 0 {
		return nil
	}
	<-ctx.Done()
	return browser.Classify("wait for "+loc.String(), ctx.Err())
}

func (d *Driver) Eval(_ context.Context, script string, out any) error {
	d.mu.Lock()
	d.Scripts = append(d.Scripts, script)
	hook := d.EvalFunc
	d.mu.Unlock()

	if hook != nil {
		return hook(script, out)
	}
	return nil
}

func (d *Driver) Screenshot(_ context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ScreenshotErr != nil {
		return nil, d.ScreenshotErr
	}
	d.Shots++
	return d.ScreenshotData, nil
}

func (d *Driver) Title(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.TitleErr != nil {
		return "", d.TitleErr
	}
	if d.current == nil {
		return "", nil
	}
	return d.current.Title, nil
}

func (d *Driver) Location(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentURL, nil
}

func (d *Driver) Source(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.SourceErr != nil {
		return "", d.SourceErr
	}
	if d.current == nil {
		return "<html><head></head><body></body></html>", nil
	}
	return d.current.HTML, nil
}

func (d *Driver) PressKey(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Keys = append(d.Keys, key)
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

// NavigatedTo returns a copy of the URLs passed to Navigate
func (d *Driver) NavigatedTo() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Navigations...)
}

// EvaluatedScripts returns a copy of the scripts passed to Eval
func (d *Driver) EvaluatedScripts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Scripts...)
}

// Element is a scripted browser.Element
type Element struct {
	mu sync.Mutex

	TextValue string
	Attrs     map[string]string
	ScrollErr error
	ClickErr  error
	KeysErr   error

	Clicks  int
	Scrolls int
	Value   string
	Cleared bool
}

func (e *Element) Text(_ context.Context) (string, error) {
	return e.TextValue, nil
}

func (e *Element) Attr(_ context.Context, name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *Element) ScrollIntoView(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Scrolls++
	return e.ScrollErr
}

func (e *Element) Click(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	return nil
}

func (e *Element) Clear(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Cleared = true
	e.Value = ""
	return nil
}

func (e *Element) SendKeys(_ context.Context, keys string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.KeysErr != nil {
		return e.KeysErr
	}
	e.Value += keys
	return nil
}

// Provider serves a fixed driver and always reports it live. OnEnsure runs
// on every Ensure call and may swap D to simulate a recreated browser.
type Provider struct {
	D         browser.Driver
	EnsureErr error
	Ensures   int
	OnEnsure  func(p *Provider)
}

// NewProvider wraps d as a browser.Manager
func NewProvider(d browser.Driver) *Provider {
	return &Provider{D: d}
}

func (p *Provider) Driver(_ context.Context) (browser.Driver, error) {
	if p.EnsureErr != nil {
		return nil, p.EnsureErr
	}
	return p.D, nil
}

func (p *Provider) Ensure(_ context.Context) (browser.Status, error) {
	p.Ensures++
	if p.OnEnsure != nil {
		p.OnEnsure(p)
	}
	if p.EnsureErr != nil {
		return browser.StatusFailed, p.EnsureErr
	}
	return browser.StatusAlreadyLive, nil
}
