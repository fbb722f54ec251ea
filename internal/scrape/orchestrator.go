// Package scrape sequences a full product scrape: session startup,
// navigation, the login gate, a settle delay, then the extraction flows.
// The orchestrator never touches the filesystem; callers decide what to do
// with the returned run and records.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/profitstory/amazon-review-scraper/internal/auth"
	"github.com/profitstory/amazon-review-scraper/internal/config"
	"github.com/profitstory/amazon-review-scraper/internal/dom"
	"github.com/profitstory/amazon-review-scraper/internal/extract"
	"github.com/profitstory/amazon-review-scraper/internal/models"
	"github.com/profitstory/amazon-review-scraper/internal/ratelimit"
	"github.com/profitstory/amazon-review-scraper/internal/wait"
	"github.com/profitstory/amazon-review-scraper/internal/walker"
)

var ErrInvalidProductID = errors.New("invalid product id")

var productIDPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// ReviewsURL builds the filtered reviews listing URL for a product. Own
// products are scraped for positive reviews, competitor products for
// critical ones; the polarity is a fixed business rule, not a parameter.
func ReviewsURL(productID string, ownProduct bool) string {
	polarity := "critical"
	if ownProduct {
		polarity = "positive"
	}
	return fmt.Sprintf(
		"https://www.amazon.com/product-reviews/%s/ref=cm_cr_dp_d_show_all_btm?ie=UTF8&reviewerType=all_reviews&filterByStar=%s",
		productID, polarity,
	)
}

// Reviews-page pagination controls.
const (
	nextPageSelector    = `li.a-last a`
	nextPageDisabledSel = `li.a-last.a-disabled`
	productURLIDPattern = `/dp/([A-Z0-9]{10})`
)

var productURLID = regexp.MustCompile(productURLIDPattern)

// Q&A prompt pill locator chains, most specific first. The carousel class
// names rotate with Amazon experiments, hence the breadth.
var questionSelectors = []string{
	`.dpx-rex-nile-inline-pill-carousel-element .a-button-text`,
	`.dpx-rex-nile-inline-pill-carousel-element button`,
	`.dpx-rex-nile-inline-pill-carousel-element input[type='submit']`,
	`[data-dpx-rex-nile-inline-pill-clicked] .a-button-text`,
	`[data-blue-metrics='PILL_CLICK'] .a-button-text`,
}

// questionFallbackSelector sweeps every button-like element when the
// carousel chains find nothing.
const questionFallbackSelector = `button, input[type='submit'], .a-button-text`

// Button text that looks like a question but is site chrome.
var questionNoisePhrases = []string{"sign in", "add to cart", "buy now", "search"}

var summarySelectors = []string{
	`#cr-product-insights-cards #product-summary p:first-of-type`,
	`[data-hook="cr-insights-widget-summary"] p:first-of-type`,
	`#product-summary .a-spacing-small:first-of-type`,
}

var aspectSelectors = []string{
	`[data-hook="cr-insights-aspect-link"]`,
	`.a-section[role="tablist"] a[role="tab"]`,
	`._Y3Itc_aspect-link_TtdmS`,
}

// minAspectLength filters out icon-only chips.
const minAspectLength = 2

// Session is the browser surface the orchestrator needs. The concrete
// implementation is browser.Session.
type Session interface {
	NewPage() (dom.Page, error)
	Close() error
}

// SessionFactory opens a fresh browser session per run.
type SessionFactory func() (Session, error)

type Options struct {
	Sessions SessionFactory
	Gate     *auth.Gate
	Scraper  config.ScraperConfig

	// Limiter paces page advances inside the walker.
	Limiter ratelimit.RateLimiter

	// Sleep is injectable for zero-delay tests.
	Sleep wait.SleepFunc

	Metrics *Metrics
}

// Orchestrator owns one scrape flow at a time. It is not safe for
// concurrent use; run one orchestrator per goroutine.
type Orchestrator struct {
	sessions SessionFactory
	gate     *auth.Gate
	cfg      config.ScraperConfig
	limiter  ratelimit.RateLimiter
	sleep    wait.SleepFunc
	metrics  *Metrics
	logger   *slog.Logger
}

func New(opts Options, logger *slog.Logger) (*Orchestrator, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session factory is required")
	}
	if opts.Gate == nil {
		return nil, fmt.Errorf("auth gate is required")
	}
	if opts.Sleep == nil {
		opts.Sleep = wait.Sleep
	}

	return &Orchestrator{
		sessions: opts.Sessions,
		gate:     opts.Gate,
		cfg:      opts.Scraper,
		limiter:  opts.Limiter,
		sleep:    opts.Sleep,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "orchestrator"),
	}, nil
}

// ScrapeInsights visits a product page and collects the Q&A prompt pills
// and the "customers say" insight bundle. It always returns a run; failures
// are recorded on it rather than returned, so a caller can persist every
// attempt uniformly.
func (o *Orchestrator) ScrapeInsights(ctx context.Context, productURL string) *models.ScrapeRun {
	run := models.NewScrapeRun(productURL)
	if m := productURLID.FindStringSubmatch(productURL); m != nil {
		run.ProductID = m[1]
	}

	o.logger.Info("starting insights run", "run_id", run.ID, "url", productURL)

	page, cleanup, err := o.openPage(ctx, productURL)
	if err != nil {
		return o.fail(run, "insights", err)
	}
	defer cleanup()

	if err := o.settle(ctx); err != nil {
		return o.fail(run, "insights", err)
	}

	questions, err := o.extractQuestions(page)
	if err != nil {
		return o.fail(run, "insights", err)
	}
	if len(questions) > 0 {
		run.Questions = questions
		run.AddSource(models.SourceQuestions)
		o.metrics.AddQuestions(len(questions))
	}

	insights, err := o.extractInsights(page)
	if err != nil {
		return o.fail(run, "insights", err)
	}
	if !insights.Empty() {
		run.Insights = insights
		run.AddSource(models.SourceCustomerInsights)
		o.metrics.AddAspects(len(insights.Aspects))
	}

	run.Finalize()
	o.observeRun(run, "insights")
	o.logger.Info("insights run finished",
		"run_id", run.ID,
		"questions", len(run.Questions),
		"aspects", len(run.Insights.Aspects),
		"sources", run.DataSourcesFound,
		"success", run.Success)
	return run
}

// ScrapeReviews walks the filtered reviews listing for a product and
// returns the harvested records in page-then-DOM order. Partial results
// survive every failure mode: whatever was harvested before an error is
// returned alongside the failed run.
func (o *Orchestrator) ScrapeReviews(ctx context.Context, productID string, ownProduct bool, maxPages int) ([]models.ReviewRecord, *models.ScrapeRun) {
	url := ReviewsURL(productID, ownProduct)
	run := models.NewScrapeRun(url)
	run.ProductID = productID

	if !productIDPattern.MatchString(productID) {
		return nil, o.fail(run, "reviews", fmt.Errorf("%w: %q", ErrInvalidProductID, productID))
	}
	if maxPages < 1 {
		maxPages = o.cfg.MaxPages
	}

	o.logger.Info("starting reviews run",
		"run_id", run.ID, "product_id", productID, "own_product", ownProduct, "max_pages", maxPages)

	page, cleanup, err := o.openPage(ctx, url)
	if err != nil {
		return nil, o.fail(run, "reviews", err)
	}
	defer cleanup()

	if err := o.settle(ctx); err != nil {
		return nil, o.fail(run, "reviews", err)
	}

	w, err := walker.New(walker.Config{
		RecordSelector:   extract.ReviewContainerSelector,
		NextSelector:     nextPageSelector,
		DisabledSelector: nextPageDisabledSel,
		MaxPages:         maxPages,
		ContentPoller: wait.Poller{
			Interval:    o.cfg.ContentInterval,
			MaxAttempts: pollAttempts(o.cfg.ContentWait, o.cfg.ContentInterval),
			Sleep:       o.sleep,
		},
		Limiter: o.limiter,
	}, o.logger)
	if err != nil {
		return nil, o.fail(run, "reviews", err)
	}

	var records []models.ReviewRecord
	out, walkErr := w.Walk(ctx, page, func(container dom.Element) error {
		rec, err := extract.Review(container)
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})

	o.metrics.AddPages(out.Pages)
	o.metrics.AddRecords(out.Harvested)
	o.metrics.AddRecordErrors(out.Skipped)

	run.ReviewCount = len(records)
	if len(records) > 0 {
		run.AddSource(models.SourceReviews)
	}
	if walkErr != nil {
		run.Error = walkErr.Error()
	}
	run.Finalize()
	o.observeRun(run, "reviews")

	o.logger.Info("reviews run finished",
		"run_id", run.ID,
		"pages", out.Pages,
		"records", len(records),
		"skipped", out.Skipped,
		"stop_reason", string(out.Reason),
		"success", run.Success)
	return records, run
}

// openPage starts a session, navigates and passes the login gate. The
// returned cleanup closes the session and must run even on failure paths
// after this call succeeds.
func (o *Orchestrator) openPage(ctx context.Context, url string) (dom.Page, func(), error) {
	session, err := o.sessions()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start session: %w", err)
	}
	cleanup := func() {
		if err := session.Close(); err != nil {
			o.logger.Warn("session close failed", "error", err)
		}
	}

	page, err := session.NewPage()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := page.Navigate(url); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if err := o.gate.Pass(ctx, page); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("login gate: %w", err)
	}

	return page, cleanup, nil
}

// settle pauses for a jittered interval after navigation so late widgets
// (the pill carousel in particular) have a chance to render.
func (o *Orchestrator) settle(ctx context.Context) error {
	min, max := o.cfg.SettleDelayMin, o.cfg.SettleDelayMax
	if max <= 0 {
		return ctx.Err()
	}
	delay := min
	if span := max - min; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	return o.sleep(ctx, delay)
}

// extractQuestions tries the carousel locator chains in order and takes the
// first chain that yields anything; when all fail it sweeps every
// button-like element and keeps the ones that read like questions. The
// returned error is fatal (closed session) only.
func (o *Orchestrator) extractQuestions(page dom.Page) ([]models.Question, error) {
	for _, selector := range questionSelectors {
		elements, err := page.QueryAll(selector)
		if err != nil {
			if errors.Is(err, dom.ErrSessionClosed) {
				return nil, err
			}
			continue
		}

		var questions []models.Question
		for _, el := range elements {
			text, err := elementLabel(el)
			if err != nil {
				if errors.Is(err, dom.ErrSessionClosed) {
					return nil, err
				}
				continue
			}
			if text == "" || !strings.Contains(text, "?") {
				continue
			}
			questions = append(questions, models.Question{
				Number:   len(questions) + 1,
				Text:     text,
				Selector: selector,
			})
		}
		if len(questions) > 0 {
			return questions, nil
		}
	}

	return o.questionFallback(page)
}

// questionFallback sweeps a static snapshot of the rendered document
// rather than the live page: the sweep touches every button-like element,
// and a mid-sweep re-render must not shift nodes under it.
func (o *Orchestrator) questionFallback(page dom.Page) ([]models.Question, error) {
	html, err := page.Content()
	if err != nil {
		if errors.Is(err, dom.ErrSessionClosed) {
			return nil, err
		}
		return nil, nil
	}

	snapshot, err := dom.FromHTML(html, page.URL())
	if err != nil {
		o.logger.Warn("failed to parse page snapshot", "error", err)
		return nil, nil
	}

	elements, err := snapshot.QueryAll(questionFallbackSelector)
	if err != nil {
		return nil, nil
	}

	var questions []models.Question
	for _, el := range elements {
		text, err := elementLabel(el)
		if err != nil {
			continue
		}
		if !looksLikeQuestion(text) {
			continue
		}
		questions = append(questions, models.Question{
			Number:   len(questions) + 1,
			Text:     text,
			Selector: "fallback",
		})
	}
	return questions, nil
}

// looksLikeQuestion filters the unscoped sweep: must contain a question
// mark, sit inside a plausible length band, and not be site chrome.
func looksLikeQuestion(text string) bool {
	if !strings.Contains(text, "?") {
		return false
	}
	if n := len(text); n <= 10 || n >= 200 {
		return false
	}
	lower := strings.ToLower(text)
	for _, phrase := range questionNoisePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

// elementLabel resolves a button-like element's label, preferring text
// content and falling back to the value attribute for submit inputs.
func elementLabel(el dom.Element) (string, error) {
	text, err := el.Text()
	if err != nil {
		return "", err
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		return trimmed, nil
	}

	value, err := el.Attribute("value")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// extractInsights collects the "customers say" summary and the aspect
// chips. Summary and aspects resolve independently; either may be empty.
func (o *Orchestrator) extractInsights(page dom.Page) (models.InsightBundle, error) {
	var bundle models.InsightBundle

	for _, selector := range summarySelectors {
		el, err := page.Query(selector)
		if err != nil {
			if errors.Is(err, dom.ErrSessionClosed) {
				return bundle, err
			}
			continue
		}
		if el == nil {
			continue
		}

		text, err := el.Text()
		if err != nil {
			if errors.Is(err, dom.ErrSessionClosed) {
				return bundle, err
			}
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			bundle.Summary = trimmed
			break
		}
	}

	for _, selector := range aspectSelectors {
		elements, err := page.QueryAll(selector)
		if err != nil {
			if errors.Is(err, dom.ErrSessionClosed) {
				return bundle, err
			}
			continue
		}

		var aspects []models.Aspect
		for _, el := range elements {
			text, err := el.Text()
			if err != nil {
				if errors.Is(err, dom.ErrSessionClosed) {
					return bundle, err
				}
				continue
			}
			trimmed := strings.TrimSpace(text)
			if len(trimmed) <= minAspectLength {
				continue
			}

			ariaLabel, err := el.Attribute("aria-label")
			if err != nil && errors.Is(err, dom.ErrSessionClosed) {
				return bundle, err
			}

			aspects = append(aspects, models.Aspect{
				Number:    len(aspects) + 1,
				Text:      trimmed,
				Sentiment: extract.Sentiment(el),
				AriaLabel: ariaLabel,
				Selector:  selector,
			})
		}
		if len(aspects) > 0 {
			bundle.Aspects = aspects
			break
		}
	}

	return bundle, nil
}

// fail records the error on the run and finalizes it.
func (o *Orchestrator) fail(run *models.ScrapeRun, kind string, err error) *models.ScrapeRun {
	run.Error = err.Error()
	run.Finalize()
	o.metrics.IncRun(kind, "failed")
	o.logger.Error("run failed", "run_id", run.ID, "kind", kind, "error", err)
	return run
}

func (o *Orchestrator) observeRun(run *models.ScrapeRun, kind string) {
	status := "empty"
	switch {
	case run.Error != "":
		status = "failed"
	case run.Success:
		status = "success"
	}
	o.metrics.IncRun(kind, status)
}

// pollAttempts converts a total wait budget and interval into a poll
// attempt count, never below one.
func pollAttempts(budget, interval time.Duration) int {
	if interval <= 0 || budget <= interval {
		return 1
	}
	return int(budget/interval) + 1
}
