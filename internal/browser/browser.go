package browser

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/profitstory/amazon-review-scraper/internal/dom"
)

// ErrSessionClosed is returned by every page operation attempted after
// Close. Closing mid-scrape must surface as this, never as a generic fault.
var ErrSessionClosed = dom.ErrSessionClosed

// webdriverPatch suppresses the standard automation-detection flag.
// Injection failure is logged and ignored: detection resistance is
// best-effort, not correctness-critical.
const webdriverPatch = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	Locale         string
	// ProfileDir, when set, launches a persistent profile so cookies and
	// the operator's login survive across runs.
	ProfileDir   string
	ExtraHeaders map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-IN,en;q=0.9",
		Locale:         "en-IN",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br",
			"DNT":             "1",
		},
	}
}

func New(opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchArgs := []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--window-size=1920,1080",
		"--user-agent=" + opts.UserAgent,
	}

	s := &Session{
		pw:      pw,
		logger:  slog.Default().With("component", "browser"),
		timeout: opts.Timeout,
	}

	if opts.ProfileDir != "" {
		context, err := pw.Chromium.LaunchPersistentContext(opts.ProfileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:  &opts.Headless,
			Args:      launchArgs,
			UserAgent: &opts.UserAgent,
			Locale:    &opts.Locale,
			Viewport: &playwright.Size{
				Width:  opts.ViewportWidth,
				Height: opts.ViewportHeight,
			},
			ExtraHttpHeaders: opts.ExtraHeaders,
		})
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to launch persistent context: %w", err)
		}
		s.context = context
	} else {
		browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: &opts.Headless,
			Args:     launchArgs,
		})
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}

		context, err := browser.NewContext(playwright.BrowserNewContextOptions{
			UserAgent:         &opts.UserAgent,
			AcceptDownloads:   playwright.Bool(false),
			JavaScriptEnabled: playwright.Bool(true),
			Locale:            &opts.Locale,
			Viewport: &playwright.Size{
				Width:  opts.ViewportWidth,
				Height: opts.ViewportHeight,
			},
			ExtraHttpHeaders: opts.ExtraHeaders,
		})
		if err != nil {
			browser.Close()
			pw.Stop()
			return nil, fmt.Errorf("failed to create browser context: %w", err)
		}

		s.browser = browser
		s.context = context
	}

	if err := s.context.AddInitScript(playwright.Script{
		Content: playwright.String(webdriverPatch),
	}); err != nil {
		s.logger.Warn("failed to inject webdriver patch, continuing without it", "error", err)
	}

	return s, nil
}

// NewPage opens a fresh page in the session's context.
func (s *Session) NewPage() (dom.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(s.timeout.Milliseconds()))

	return &sessionPage{session: s, page: page}, nil
}

// Close tears the session down. It is idempotent, and never calling it is a
// supported mode: the operator may leave the browser open for inspection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
