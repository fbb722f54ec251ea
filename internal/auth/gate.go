// Package auth detects login walls and blocks until the operator completes
// sign-in out-of-band. The gate is advisory: detection timeouts degrade to
// "proceed anyway", because the operator may have finished logging in
// through a path the heuristics miss.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/profitstory/amazon-review-scraper/internal/dom"
	"github.com/profitstory/amazon-review-scraper/internal/wait"
)

// NavState classifies the current page by its URL. It is transient and
// recomputed on every check, never persisted.
type NavState int

const (
	Unknown NavState = iota
	OnTarget
	OnLogin
	OnRegister
)

func (s NavState) String() string {
	switch s {
	case OnTarget:
		return "on_target"
	case OnLogin:
		return "on_login"
	case OnRegister:
		return "on_register"
	default:
		return "unknown"
	}
}

// Classify derives the NavState from a URL. Auth subpaths win over domain
// matching: a signin page on the target domain is still a login wall.
func Classify(url, targetDomain string) NavState {
	switch {
	case strings.Contains(url, "ap/signin"):
		return OnLogin
	case strings.Contains(url, "ap/register"):
		return OnRegister
	case targetDomain != "" && strings.Contains(url, targetDomain):
		return OnTarget
	default:
		return Unknown
	}
}

// RequiresLogin reports whether the state blocks scraping.
func RequiresLogin(state NavState) bool {
	return state == OnLogin || state == OnRegister
}

// Prioritized sign-in affordances; the auto-advance pass clicks the first
// visible, enabled match whose text looks like a sign-in prompt.
var signinSelectors = []string{
	`a[href*="ap/signin"] .a-button-text`,
	`a[href*="ap/signin"]`,
	`a.a-button-text[href*="signin"]`,
	`.nav-signin-tooltip a`,
	`#nav-link-accountList`,
}

var signinKeywords = []string{"sign in", "sign-in", "login", "hello"}

// Elements whose text carries a personalized greeting once logged in.
var greetingSelectors = []string{
	`#nav-link-accountList[aria-label*="Hello"]`,
	`.nav-line-1[dir="ltr"]`,
	`#nav-tools a[href*="your-account"]`,
}

// minGreetingLength guards against placeholder text like "Hello, sign in"
// being mistaken for a personalized greeting.
const minGreetingLength = 10

// Gate is the login-wall state machine for one target domain.
type Gate struct {
	targetDomain string
	poller       wait.Poller
	settle       time.Duration
	sleep        wait.SleepFunc
	logger       *slog.Logger
}

type GateOptions struct {
	TargetDomain string
	MaxAttempts  int
	PollInterval time.Duration
	// Settle is the pause after a synthetic sign-in click.
	Settle time.Duration
	Sleep  wait.SleepFunc
}

func NewGate(opts GateOptions, logger *slog.Logger) *Gate {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 10
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = wait.Sleep
	}

	return &Gate{
		targetDomain: opts.TargetDomain,
		poller: wait.Poller{
			Interval:    opts.PollInterval,
			MaxAttempts: opts.MaxAttempts,
			Sleep:       opts.Sleep,
		},
		settle: opts.Settle,
		sleep:  opts.Sleep,
		logger: logger.With("component", "auth_gate"),
	}
}

// Pass runs the gate against the current page: one auto-advance click at
// most, then a bounded poll for login completion if the page is an auth
// wall. It returns an error only on cancellation or a closed session;
// detection timeout is logged and swallowed.
func (g *Gate) Pass(ctx context.Context, page dom.Page) error {
	if err := g.attemptAutoAdvance(ctx, page); err != nil {
		return err
	}

	state := Classify(page.URL(), g.targetDomain)
	if !RequiresLogin(state) {
		return nil
	}

	g.logger.Info("login required, waiting for operator to complete sign-in", "state", state.String())

	done, err := g.waitForCompletion(ctx, page)
	if err != nil {
		return err
	}
	if !done {
		g.logger.Warn("login detection timed out, proceeding anyway")
	}
	return nil
}

// attemptAutoAdvance clicks the first plausible sign-in affordance, at most
// once per call. All DOM failures short of a closed session are swallowed:
// this step is best-effort.
func (g *Gate) attemptAutoAdvance(ctx context.Context, page dom.Page) error {
	for _, selector := range signinSelectors {
		elements, err := page.QueryAll(selector)
		if err != nil {
			if errors.Is(err, dom.ErrSessionClosed) {
				return err
			}
			continue
		}

		for _, el := range elements {
			if !isActionable(el) {
				continue
			}

			text, err := el.Text()
			if err != nil {
				continue
			}
			if !containsAny(strings.ToLower(text), signinKeywords) {
				continue
			}

			if err := el.Click(); err != nil {
				if errors.Is(err, dom.ErrSessionClosed) {
					return err
				}
				g.logger.Debug("sign-in click failed", "selector", selector, "error", err)
				continue
			}

			g.logger.Debug("clicked sign-in affordance", "selector", selector)
			return g.sleep(ctx, g.settle)
		}
	}

	return ctx.Err()
}

// waitForCompletion polls until either the URL leaves the auth subpath
// while staying on the target domain, or a personalized greeting element
// appears. DOM errors during a redirect are expected and count as "not
// logged in yet".
func (g *Gate) waitForCompletion(ctx context.Context, page dom.Page) (bool, error) {
	var fatal error

	done, err := g.poller.Wait(ctx, func() (bool, error) {
		url := page.URL()
		if url != "" && !strings.Contains(url, "ap/") && strings.Contains(url, g.targetDomain) {
			g.logger.Info("login completed", "signal", "url", "url", url)
			return true, nil
		}

		ok, err := g.greetingVisible(page)
		if errors.Is(err, dom.ErrSessionClosed) {
			fatal = err
			return true, nil
		}
		if ok {
			g.logger.Info("login completed", "signal", "greeting")
			return true, nil
		}
		return false, err
	})

	if fatal != nil {
		return false, fatal
	}
	return done, err
}

func (g *Gate) greetingVisible(page dom.Page) (bool, error) {
	for _, selector := range greetingSelectors {
		elements, err := page.QueryAll(selector)
		if err != nil {
			return false, err
		}

		for _, el := range elements {
			visible, err := el.Visible()
			if err != nil || !visible {
				continue
			}

			text, err := el.Text()
			if err != nil {
				continue
			}

			trimmed := strings.TrimSpace(text)
			if strings.Contains(strings.ToLower(trimmed), "hello") && len(trimmed) > minGreetingLength {
				return true, nil
			}
		}
	}
	return false, nil
}

func isActionable(el dom.Element) bool {
	visible, err := el.Visible()
	if err != nil || !visible {
		return false
	}
	enabled, err := el.Enabled()
	return err == nil && enabled
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
