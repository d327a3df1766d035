package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Status reports what Ensure had to do
type Status int

const (
	StatusFailed Status = iota
	StatusAlreadyLive
	StatusNewlyCreated
)

func (s Status) String() string {
	switch s {
	case StatusAlreadyLive:
		return "already live"
	case StatusNewlyCreated:
		return "newly created"
	default:
		return "failed"
	}
}

// Launcher creates a new driver
type Launcher func(ChromeOptions) (Driver, error)

const pingTimeout = 5 * time.Second

// Session owns at most one live driver and recreates it when it stops responding
type Session struct {
	mu       sync.Mutex
	opts     ChromeOptions
	primary  Launcher
	fallback Launcher
	driver   Driver
	logger   *log.Logger
}

// NewSession creates a session that launches Chrome with the full option set and
// falls back to a remote browser when one is configured, or to a minimal local launch.
func NewSession(opts ChromeOptions) *Session {
	fallback := LaunchMinimal
	if opts.RemoteURL != "" {
		fallback = ConnectChrome
	}
	return NewSessionWithLaunchers(opts, LaunchChrome, fallback)
}

// NewSessionWithLaunchers creates a session with explicit launch strategies
func NewSessionWithLaunchers(opts ChromeOptions, primary, fallback Launcher) *Session {
	opts = opts.withDefaults()
	return &Session{
		opts:     opts,
		primary:  primary,
		fallback: fallback,
		logger:   opts.Logger,
	}
}

// Ensure makes sure a live driver exists
func (s *Session) Ensure(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(ctx)
}

func (s *Session) ensureLocked(ctx context.Context) (Status, error) {
	if s.driver != nil {
		err := ping(ctx, s.driver)
		if err == nil {
			return StatusAlreadyLive, nil
		}
		s.logger.Warn("Stale browser session detected, recreating", "err", err)
		_ = s.driver.Close()
		s.driver = nil
	}

	if err := ctx.Err(); err != nil {
		return StatusFailed, Classify("ensure session", err)
	}

	d, err := s.primary(s.opts)
	if err != nil {
		s.logger.Warn("Primary browser launch failed, trying fallback", "err", err)
		if s.fallback == nil {
			return StatusFailed, NewError(KindDriverFault, "ensure session", "launch chrome", err)
		}
		alt, altErr := s.fallback(s.opts)
		if altErr != nil {
			return StatusFailed, NewError(KindDriverFault, "ensure session",
				fmt.Sprintf("launch chrome (fallback: %v)", altErr), err)
		}
		d = alt
	}

	s.driver = d
	s.logger.Debug("Browser session started", "headless", s.opts.Headless, "viewport", fmt.Sprintf("%dx%d", s.opts.ViewportWidth, s.opts.ViewportHeight))
	return StatusNewlyCreated, nil
}

func ping(ctx context.Context, d Driver) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	var n int
	return d.Eval(pingCtx, "1", &n)
}

// Driver returns the live driver, creating one if needed
func (s *Session) Driver(ctx context.Context) (Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver != nil {
		return s.driver, nil
	}
	if _, err := s.ensureLocked(ctx); err != nil {
		return nil, err
	}
	return s.driver, nil
}

// Live reports whether a driver is currently held
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver != nil
}

// Close shuts the driver down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close()
	s.driver = nil
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
