// Package browser wraps a Chrome DevTools session behind small interfaces
// so navigation, interaction and extraction code can run against a fake.
package browser

import (
	"context"
)

// Driver controls a single browser tab
type Driver interface {
	Navigate(ctx context.Context, url string) error
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
	WaitPresent(ctx context.Context, loc Locator) error
	Eval(ctx context.Context, script string, out any) error
	Screenshot(ctx context.Context) ([]byte, error)
	Title(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	Source(ctx context.Context) (string, error)
	PressKey(ctx context.Context, key string) error
	Close() error
}

// Element is a handle to a node on the page. Handles go stale when the page changes.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attr(ctx context.Context, name string) (string, bool, error)
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, keys string) error
}

// Provider hands out the live driver
type Provider interface {
	Driver(ctx context.Context) (Driver, error)
}

// Manager is a Provider that can also (re)establish the session
type Manager interface {
	Provider
	Ensure(ctx context.Context) (Status, error)
}
