package browser

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configures how Chrome is launched or attached to
type ChromeOptions struct {
	Headless        bool
	UserAgent       string
	RemoteURL       string
	ViewportWidth   int
	ViewportHeight  int
	PageLoadTimeout time.Duration
	ElementTimeout  time.Duration
	Logger          *log.Logger
}

func (o ChromeOptions) withDefaults() ChromeOptions {
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 1920
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 1080
	}
	if o.PageLoadTimeout <= 0 {
		o.PageLoadTimeout = 20 * time.Second
	}
	if o.ElementTimeout <= 0 {
		o.ElementTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// allocatorOptions builds the Chrome flags for a full, window-sized session
func allocatorOptions(o ChromeOptions) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(o.ViewportWidth, o.ViewportHeight),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	return opts
}

// LaunchChrome starts a local Chrome with the full option set
func LaunchChrome(o ChromeOptions) (Driver, error) {
	o = o.withDefaults()
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(o)...)
	return start(allocCtx, allocCancel, o)
}

// LaunchMinimal starts a local headless Chrome with chromedp's defaults and only the user agent applied
func LaunchMinimal(o ChromeOptions) (Driver, error) {
	o = o.withDefaults()
	opts := chromedp.DefaultExecAllocatorOptions[:]
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return start(allocCtx, allocCancel, o)
}

// ConnectChrome attaches to an already running Chrome through its DevTools websocket URL
func ConnectChrome(o ChromeOptions) (Driver, error) {
	o = o.withDefaults()
	if o.RemoteURL == "" {
		return nil, Errorf(KindInvalid, "connect chrome", "no remote DevTools URL configured")
	}
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), o.RemoteURL)
	return start(allocCtx, allocCancel, o)
}

type chromeDriver struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	opts        ChromeOptions
}

func start(allocCtx context.Context, allocCancel context.CancelFunc, o ChromeOptions) (Driver, error) {
	logger := o.Logger
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) { logger.Debugf(format, args...) }),
		chromedp.WithErrorf(func(format string, args ...any) { logger.Debugf(format, args...) }),
	)

	// The first Run allocates the browser and must use the tab context itself,
	// otherwise cancelling a derived context would close the browser.
	if err := chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(o.ViewportWidth), int64(o.ViewportHeight))); err != nil {
		tabCancel()
		allocCancel()
		return nil, Classify("start chrome", err)
	}

	return &chromeDriver{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		opts:        o,
	}, nil
}

// run executes actions on the tab, bounded by ctx and by timeout when positive
func (d *chromeDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	return Classify("navigate", d.run(ctx, d.opts.PageLoadTimeout, chromedp.Navigate(url)))
}

func (d *chromeDriver) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	var nodes []*cdp.Node
	var q chromedp.QueryAction
	if sel, ok := loc.CSSSelector(); ok {
		q = chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))
	} else {
		q = chromedp.Nodes(loc.Value, &nodes, chromedp.BySearch, chromedp.AtLeast(0))
	}
	if err := d.run(ctx, d.opts.ElementTimeout, q); err != nil {
		return nil, Classify("find "+loc.String(), err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromeElement{d: d, node: n})
	}
	return elements, nil
}

func (d *chromeDriver) WaitPresent(ctx context.Context, loc Locator) error {
	var q chromedp.QueryAction
	if sel, ok := loc.CSSSelector(); ok {
		q = chromedp.WaitReady(sel, chromedp.ByQuery)
	} else {
		q = chromedp.WaitReady(loc.Value, chromedp.BySearch)
	}
	return Classify("wait for "+loc.String(), d.run(ctx, 0, q))
}

func (d *chromeDriver) Eval(ctx context.Context, script string, out any) error {
	return Classify("evaluate", d.run(ctx, d.opts.ElementTimeout, chromedp.Evaluate(script, out)))
}

func (d *chromeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, d.opts.PageLoadTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, Classify("screenshot", err)
	}
	return buf, nil
}

func (d *chromeDriver) Title(ctx context.Context) (string, error) {
	var title string
	if err := d.run(ctx, d.opts.ElementTimeout, chromedp.Title(&title)); err != nil {
		return "", Classify("title", err)
	}
	return title, nil
}

func (d *chromeDriver) Location(ctx context.Context) (string, error) {
	var loc string
	if err := d.run(ctx, d.opts.ElementTimeout, chromedp.Location(&loc)); err != nil {
		return "", Classify("location", err)
	}
	return loc, nil
}

func (d *chromeDriver) Source(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, d.opts.PageLoadTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", Classify("page source", err)
	}
	return html, nil
}

func (d *chromeDriver) PressKey(ctx context.Context, key string) error {
	return Classify("press key", d.run(ctx, d.opts.ElementTimeout, chromedp.KeyEvent(key)))
}

func (d *chromeDriver) Close() error {
	d.tabCancel()
	d.allocCancel()
	return nil
}

type chromeElement struct {
	d    *chromeDriver
	node *cdp.Node
}

const (
	textJS   = `function() { return (this.innerText || this.textContent || '').trim(); }`
	attrJS   = `function(name) { var v = this[name]; if (typeof v === 'string') { return v; } return this.getAttribute(name); }`
	scrollJS = `function() { this.scrollIntoView({behavior: 'smooth', block: 'center'}); }`
	clearJS  = `function() {
		if ('value' in this) {
			this.value = '';
			this.dispatchEvent(new Event('input', {bubbles: true}));
		} else {
			this.textContent = '';
		}
	}`
	// hitJS reports why a click at the element's centre would not reach it
	hitJS = `function() {
		var r = this.getBoundingClientRect();
		if (r.width === 0 && r.height === 0) { return 'element not visible'; }
		var t = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
		if (!t) { return 'element not visible in viewport'; }
		if (t === this || this.contains(t) || t.contains(this)) { return ''; }
		return 'click intercepted by <' + t.tagName.toLowerCase() + '>';
	}`
)

// call runs fn with this bound to the element's remote object
func (e *chromeElement) call(ctx context.Context, op, fn string, res any, args ...any) error {
	err := e.d.run(ctx, e.d.opts.ElementTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		// releasing fails once the page navigated away, which is harmless
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(fn, res, bindTo(obj.ObjectID), args...).Do(ctx)
	}))
	return Classify(op, err)
}

func bindTo(id runtime.RemoteObjectID) chromedp.CallOption {
	return func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id)
	}
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var s string
	if err := e.call(ctx, "element text", textJS, &s); err != nil {
		return "", err
	}
	return s, nil
}

func (e *chromeElement) Attr(ctx context.Context, name string) (string, bool, error) {
	var v *string
	if err := e.call(ctx, "element attribute", attrJS, &v, name); err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *chromeElement) ScrollIntoView(ctx context.Context) error {
	return e.call(ctx, "scroll into view", scrollJS, nil)
}

func (e *chromeElement) Click(ctx context.Context) error {
	var reason string
	if err := e.call(ctx, "click", hitJS, &reason); err != nil {
		return err
	}
	if reason != "" {
		return NewError(KindNotInteractable, "click", reason, nil)
	}
	err := e.d.run(ctx, e.d.opts.ElementTimeout, chromedp.MouseClickNode(e.node))
	return Classify("click", err)
}

func (e *chromeElement) Clear(ctx context.Context) error {
	return e.call(ctx, "clear", clearJS, nil)
}

func (e *chromeElement) SendKeys(ctx context.Context, keys string) error {
	err := e.d.run(ctx, e.d.opts.ElementTimeout, chromedp.KeyEventNode(e.node, keys))
	return Classify("send keys", err)
}
