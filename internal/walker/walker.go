// Package walker drives the page-by-page review retrieval loop:
// wait-for-content, harvest every record on the page, advance through the
// "next" control, stop on exhaustion or the configured page cap. Both stop
// reasons are clean terminations; partial progress is always kept.
package walker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/profitstory/amazon-review-scraper/internal/dom"
	"github.com/profitstory/amazon-review-scraper/internal/ratelimit"
	"github.com/profitstory/amazon-review-scraper/internal/wait"
)

// StopReason is the walker's terminal state.
type StopReason string

const (
	// ReasonExhausted means the site ran out of pages (no records loaded,
	// or the next control was absent or disabled).
	ReasonExhausted StopReason = "exhausted"
	// ReasonCapped means the configured page bound was reached. The cap is
	// a politeness bound and takes precedence over further availability.
	ReasonCapped StopReason = "capped"
)

// HarvestFunc consumes one record container. An error skips that record
// only; it never aborts the page.
type HarvestFunc func(dom.Element) error

type Config struct {
	// RecordSelector matches one record container.
	RecordSelector string
	// NextSelector matches the enabled "next page" control.
	NextSelector string
	// DisabledSelector, when matched, marks pagination as ended even if
	// NextSelector still resolves.
	DisabledSelector string
	MaxPages         int
	// ContentPoller bounds the wait for record containers after each
	// navigation or page advance.
	ContentPoller wait.Poller
	// Limiter applies the inter-page jitter delay. Nil disables it.
	Limiter ratelimit.RateLimiter
}

// Outcome summarizes one walk.
type Outcome struct {
	Pages     int
	Harvested int
	Skipped   int
	Reason    StopReason
}

type Walker struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Walker, error) {
	if cfg.RecordSelector == "" {
		return nil, fmt.Errorf("record selector is required")
	}
	if cfg.MaxPages < 1 {
		return nil, fmt.Errorf("max pages must be at least 1, got %d", cfg.MaxPages)
	}
	return &Walker{cfg: cfg, logger: logger.With("component", "walker")}, nil
}

// Walk runs the pagination loop on an already-navigated page. It performs
// at most MaxPages harvest cycles and returns the outcome together with any
// fatal error (cancellation or a closed session). Records harvested before
// a fatal error remain with the caller: harvest has already seen them.
func (w *Walker) Walk(ctx context.Context, page dom.Page, harvest HarvestFunc) (Outcome, error) {
	out := Outcome{}

	for pageNum := 1; ; pageNum++ {
		// LOADING
		if err := ctx.Err(); err != nil {
			return out, err
		}

		loaded, err := w.waitForContent(ctx, page)
		if err != nil {
			return out, err
		}
		if !loaded {
			// The page produced nothing within the bounded wait. Stop here
			// rather than retrying the same page.
			w.logger.Info("no records appeared, stopping", "page", pageNum)
			out.Reason = ReasonExhausted
			return out, nil
		}

		// HARVESTING
		containers, err := page.QueryAll(w.cfg.RecordSelector)
		if err != nil {
			if errors.Is(err, dom.ErrSessionClosed) {
				return out, err
			}
			w.logger.Warn("failed to list record containers", "page", pageNum, "error", err)
			out.Reason = ReasonExhausted
			return out, nil
		}

		for _, container := range containers {
			if err := ctx.Err(); err != nil {
				return out, err
			}

			if err := harvest(container); err != nil {
				if errors.Is(err, dom.ErrSessionClosed) {
					return out, err
				}
				out.Skipped++
				w.logger.Warn("skipping record", "page", pageNum, "error", err)
				continue
			}
			out.Harvested++
		}
		out.Pages = pageNum

		w.logger.Info("page harvested", "page", pageNum, "records", len(containers))

		if pageNum >= w.cfg.MaxPages {
			out.Reason = ReasonCapped
			return out, nil
		}

		// ADVANCING
		advanced, err := w.advance(ctx, page)
		if err != nil {
			return out, err
		}
		if !advanced {
			out.Reason = ReasonExhausted
			return out, nil
		}
	}
}

func (w *Walker) waitForContent(ctx context.Context, page dom.Page) (bool, error) {
	var fatal error

	loaded, err := w.cfg.ContentPoller.Wait(ctx, func() (bool, error) {
		containers, err := page.QueryAll(w.cfg.RecordSelector)
		if err != nil {
			if errors.Is(err, dom.ErrSessionClosed) {
				fatal = err
				return true, nil
			}
			return false, err
		}
		return len(containers) > 0, nil
	})

	if fatal != nil {
		return false, fatal
	}
	return loaded, err
}

// advance clicks the next control if it is present and enabled, then
// applies the inter-page jitter delay. A missing or disabled control ends
// pagination cleanly.
func (w *Walker) advance(ctx context.Context, page dom.Page) (bool, error) {
	if w.cfg.DisabledSelector != "" {
		disabled, err := page.Query(w.cfg.DisabledSelector)
		if err != nil && errors.Is(err, dom.ErrSessionClosed) {
			return false, err
		}
		if disabled != nil {
			return false, nil
		}
	}

	next, err := page.Query(w.cfg.NextSelector)
	if err != nil {
		if errors.Is(err, dom.ErrSessionClosed) {
			return false, err
		}
		return false, nil
	}
	if next == nil {
		return false, nil
	}

	if enabled, err := next.Enabled(); err != nil || !enabled {
		if err != nil && errors.Is(err, dom.ErrSessionClosed) {
			return false, err
		}
		return false, nil
	}

	if err := next.Click(); err != nil {
		if errors.Is(err, dom.ErrSessionClosed) {
			return false, err
		}
		w.logger.Warn("next control click failed", "error", err)
		return false, nil
	}

	if w.cfg.Limiter != nil {
		if err := w.cfg.Limiter.Wait(ctx); err != nil {
			return false, err
		}
	}

	return true, nil
}
