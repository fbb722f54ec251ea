package scrape

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profitstory/amazon-review-scraper/internal/auth"
	"github.com/profitstory/amazon-review-scraper/internal/config"
	"github.com/profitstory/amazon-review-scraper/internal/dom"
	"github.com/profitstory/amazon-review-scraper/internal/models"
	"github.com/profitstory/amazon-review-scraper/internal/ratelimit"
)

const testProductID = "B08N5WRWNW"

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

// navPage makes a read-only snapshot usable where the orchestrator expects
// to navigate first.
type navPage struct {
	dom.Page
}

func (navPage) Navigate(string) error { return nil }

type fakeSession struct {
	page   dom.Page
	closed int
}

func (s *fakeSession) NewPage() (dom.Page, error) { return s.page, nil }
func (s *fakeSession) Close() error               { s.closed++; return nil }

func snapshotPage(t *testing.T, html, url string) dom.Page {
	t.Helper()
	snap, err := dom.FromHTML(html, url)
	require.NoError(t, err)
	return navPage{snap}
}

func testOrchestrator(t *testing.T, page dom.Page) (*Orchestrator, *fakeSession) {
	t.Helper()
	sess := &fakeSession{page: page}
	gate := auth.NewGate(auth.GateOptions{
		TargetDomain: "amazon",
		MaxAttempts:  1,
		PollInterval: time.Millisecond,
		Sleep:        noSleep,
	}, slog.Default())

	o, err := New(Options{
		Sessions: func() (Session, error) { return sess, nil },
		Gate:     gate,
		Scraper:  config.ScraperConfig{MaxPages: 3},
		Limiter:  ratelimit.None{},
		Sleep:    noSleep,
	}, slog.Default())
	require.NoError(t, err)
	return o, sess
}

func TestReviewsURLPolarity(t *testing.T) {
	own := ReviewsURL(testProductID, true)
	competitor := ReviewsURL(testProductID, false)

	assert.Contains(t, own, "filterByStar=positive")
	assert.Contains(t, competitor, "filterByStar=critical")
	assert.Contains(t, own, "/product-reviews/"+testProductID+"/")
	assert.Contains(t, own, "reviewerType=all_reviews")
}

const threeReviewsHTML = `<body>
<div data-hook="review">
	<a data-hook="review-title"><span>Great</span></a>
	<i data-hook="review-star-rating" class="a-icon a-star-5"></i>
	<div data-hook="review-body"><span>Love it.</span></div>
</div>
<div data-hook="review">
	<a data-hook="review-title"><span>Good</span></a>
	<i data-hook="review-star-rating" class="a-icon a-star-4"></i>
	<div data-hook="review-body"><span>Solid.</span></div>
</div>
<div data-hook="review">
	<a data-hook="review-title"><span>Unrated</span></a>
	<div data-hook="review-body"><span>No stars shown.</span></div>
</div>
</body>`

func TestScrapeReviewsRatingFallback(t *testing.T) {
	page := snapshotPage(t, threeReviewsHTML, "https://www.amazon.com/product-reviews/"+testProductID+"/")
	o, sess := testOrchestrator(t, page)

	records, run := o.ScrapeReviews(context.Background(), testProductID, true, 3)

	require.Len(t, records, 3)
	assert.Equal(t, "5", records[0].Rating)
	assert.Equal(t, "4", records[1].Rating)
	assert.Equal(t, models.FieldUnavailable, records[2].Rating)

	assert.True(t, run.Success)
	assert.Empty(t, run.Error)
	assert.Equal(t, 3, run.ReviewCount)
	assert.Equal(t, []string{models.SourceReviews}, run.DataSourcesFound)
	assert.Equal(t, 1, sess.closed, "session must be closed after the run")
}

func TestScrapeReviewsInvalidProductID(t *testing.T) {
	o, _ := testOrchestrator(t, snapshotPage(t, "<body></body>", "https://www.amazon.com/"))

	records, run := o.ScrapeReviews(context.Background(), "nope", true, 1)

	assert.Nil(t, records)
	assert.False(t, run.Success)
	assert.Contains(t, run.Error, "invalid product id")
}

func TestScrapeReviewsEmptyListingIsCleanFailure(t *testing.T) {
	page := snapshotPage(t, "<body><p>No reviews yet</p></body>", "https://www.amazon.com/product-reviews/"+testProductID+"/")
	o, _ := testOrchestrator(t, page)

	records, run := o.ScrapeReviews(context.Background(), testProductID, false, 2)

	assert.Empty(t, records)
	assert.False(t, run.Success, "nothing found means not successful")
	assert.Empty(t, run.Error, "but the run did not crash")
	assert.Empty(t, run.DataSourcesFound)
}

func TestScrapeReviewsSessionStartFailure(t *testing.T) {
	gate := auth.NewGate(auth.GateOptions{TargetDomain: "amazon", MaxAttempts: 1, Sleep: noSleep}, slog.Default())
	o, err := New(Options{
		Sessions: func() (Session, error) { return nil, errors.New("chromium not found") },
		Gate:     gate,
		Scraper:  config.ScraperConfig{MaxPages: 1},
		Sleep:    noSleep,
	}, slog.Default())
	require.NoError(t, err)

	records, run := o.ScrapeReviews(context.Background(), testProductID, true, 1)

	assert.Nil(t, records)
	assert.False(t, run.Success)
	assert.Contains(t, run.Error, "failed to start session")
	assert.Contains(t, run.Error, "chromium not found")
}

// pagedReviews serves one snapshot per page and advances on next-control
// clicks, so the page cap is observable end to end.
type pagedReviews struct {
	snapshots []dom.Page
	current   int
	url       string
}

type pagedNext struct {
	site *pagedReviews
}

func (n *pagedNext) Text() (string, error)                  { return "Next page", nil }
func (n *pagedNext) Attribute(string) (string, error)       { return "", nil }
func (n *pagedNext) Query(string) (dom.Element, error)      { return nil, nil }
func (n *pagedNext) QueryAll(string) ([]dom.Element, error) { return nil, nil }
func (n *pagedNext) Visible() (bool, error)                 { return true, nil }
func (n *pagedNext) Enabled() (bool, error)                 { return true, nil }
func (n *pagedNext) Click() error                           { n.site.current++; return nil }

func (p *pagedReviews) Navigate(string) error    { return nil }
func (p *pagedReviews) URL() string              { return p.url }
func (p *pagedReviews) Content() (string, error) { return "", nil }

func (p *pagedReviews) Query(selector string) (dom.Element, error) {
	switch selector {
	case nextPageSelector:
		if p.current < len(p.snapshots)-1 {
			return &pagedNext{site: p}, nil
		}
		return nil, nil
	case nextPageDisabledSel:
		return nil, nil
	}
	return p.snapshots[p.current].Query(selector)
}

func (p *pagedReviews) QueryAll(selector string) ([]dom.Element, error) {
	return p.snapshots[p.current].QueryAll(selector)
}

func TestScrapeReviewsHonorsPageCap(t *testing.T) {
	pageHTML := func(title string) string {
		return `<body><div data-hook="review">
			<a data-hook="review-title"><span>` + title + `</span></a>
			<div data-hook="review-body"><span>text</span></div>
		</div></body>`
	}

	var snaps []dom.Page
	for _, title := range []string{"one", "two", "three", "four", "five"} {
		snap, err := dom.FromHTML(pageHTML(title), "")
		require.NoError(t, err)
		snaps = append(snaps, snap)
	}
	page := &pagedReviews{snapshots: snaps, url: "https://www.amazon.com/product-reviews/" + testProductID + "/"}
	o, _ := testOrchestrator(t, page)

	records, run := o.ScrapeReviews(context.Background(), testProductID, false, 2)

	require.Len(t, records, 2, "two pages of one review each")
	assert.Equal(t, "one", records[0].Title)
	assert.Equal(t, "two", records[1].Title)
	assert.True(t, run.Success)
}

const pillsAndInsightsHTML = `<body>
<div class="dpx-rex-nile-inline-pill-carousel">
	<div class="dpx-rex-nile-inline-pill-carousel-element"><span class="a-button-text">Is this machine washable?</span></div>
	<div class="dpx-rex-nile-inline-pill-carousel-element"><span class="a-button-text">Does it run quiet?</span></div>
</div>
<div id="cr-product-insights-cards">
	<div id="product-summary"><p>Customers like the build quality and the battery life.</p></div>
</div>
<a data-hook="cr-insights-aspect-link" aria-label="Battery life positive"><span>Battery life</span></a>
<a data-hook="cr-insights-aspect-link" aria-label="Noise negative"><svg><path fill="#DE7921"></path></svg><span>Noise</span></a>
</body>`

func TestScrapeInsightsFullPage(t *testing.T) {
	page := snapshotPage(t, pillsAndInsightsHTML, "https://www.amazon.in/dp/"+testProductID)
	o, _ := testOrchestrator(t, page)

	run := o.ScrapeInsights(context.Background(), "https://www.amazon.in/dp/"+testProductID)

	assert.True(t, run.Success)
	assert.Equal(t, testProductID, run.ProductID)
	assert.ElementsMatch(t, []string{models.SourceQuestions, models.SourceCustomerInsights}, run.DataSourcesFound)

	require.Len(t, run.Questions, 2)
	assert.Equal(t, 1, run.Questions[0].Number)
	assert.Equal(t, "Is this machine washable?", run.Questions[0].Text)
	assert.Equal(t, 2, run.Questions[1].Number)

	assert.Equal(t, "Customers like the build quality and the battery life.", run.Insights.Summary)
	require.Len(t, run.Insights.Aspects, 2)
	assert.Equal(t, models.SentimentPositive, run.Insights.Aspects[0].Sentiment)
	assert.Equal(t, models.SentimentNegative, run.Insights.Aspects[1].Sentiment)
	assert.Equal(t, "Noise negative", run.Insights.Aspects[1].AriaLabel)
}

func TestScrapeInsightsSummaryOnly(t *testing.T) {
	html := `<body>
	<div id="cr-product-insights-cards">
		<div id="product-summary"><p>Customers mention it holds up well outdoors.</p></div>
	</div>
	</body>`
	page := snapshotPage(t, html, "https://www.amazon.in/dp/"+testProductID)
	o, _ := testOrchestrator(t, page)

	run := o.ScrapeInsights(context.Background(), "https://www.amazon.in/dp/"+testProductID)

	assert.True(t, run.Success, "a summary alone is a data source")
	assert.Equal(t, []string{models.SourceCustomerInsights}, run.DataSourcesFound)
	assert.Empty(t, run.Questions)
	assert.Empty(t, run.Insights.Aspects)
}

func TestScrapeInsightsQuestionFallback(t *testing.T) {
	html := `<body>
	<button>Does it fit a standard shelf?</button>
	<button>Sign in to see your account?</button>
	<button>Hm?</button>
	<span class="a-button-text">Add to Cart</span>
	</body>`
	page := snapshotPage(t, html, "https://www.amazon.in/dp/"+testProductID)
	o, _ := testOrchestrator(t, page)

	run := o.ScrapeInsights(context.Background(), "https://www.amazon.in/dp/"+testProductID)

	require.Len(t, run.Questions, 1, "noise phrases and short texts are filtered")
	assert.Equal(t, "Does it fit a standard shelf?", run.Questions[0].Text)
	assert.Equal(t, "fallback", run.Questions[0].Selector)
}

// contentOnlyPage renders nothing through live queries; the document is
// only reachable through Content().
type contentOnlyPage struct {
	html string
	url  string
}

func (p *contentOnlyPage) Navigate(string) error                  { return nil }
func (p *contentOnlyPage) URL() string                            { return p.url }
func (p *contentOnlyPage) Content() (string, error)               { return p.html, nil }
func (p *contentOnlyPage) Query(string) (dom.Element, error)      { return nil, nil }
func (p *contentOnlyPage) QueryAll(string) ([]dom.Element, error) { return nil, nil }

func TestQuestionFallbackSweepsRenderedSnapshot(t *testing.T) {
	page := &contentOnlyPage{
		html: `<body><button>Does it fit a standard shelf?</button></body>`,
		url:  "https://www.amazon.in/dp/" + testProductID,
	}
	o, _ := testOrchestrator(t, page)

	run := o.ScrapeInsights(context.Background(), "https://www.amazon.in/dp/"+testProductID)

	require.Len(t, run.Questions, 1, "fallback must parse the document content, not re-query the live page")
	assert.Equal(t, "Does it fit a standard shelf?", run.Questions[0].Text)
	assert.Equal(t, "fallback", run.Questions[0].Selector)
}

func TestScrapeInsightsNothingFound(t *testing.T) {
	page := snapshotPage(t, "<body><h1>Product</h1></body>", "https://www.amazon.in/dp/"+testProductID)
	o, _ := testOrchestrator(t, page)

	run := o.ScrapeInsights(context.Background(), "https://www.amazon.in/dp/"+testProductID)

	assert.False(t, run.Success)
	assert.Empty(t, run.Error)
	assert.Empty(t, run.DataSourcesFound)
}

func TestScrapeInsightsSessionStartFailure(t *testing.T) {
	gate := auth.NewGate(auth.GateOptions{TargetDomain: "amazon", MaxAttempts: 1, Sleep: noSleep}, slog.Default())
	o, err := New(Options{
		Sessions: func() (Session, error) { return nil, errors.New("launch failed") },
		Gate:     gate,
		Sleep:    noSleep,
	}, slog.Default())
	require.NoError(t, err)

	run := o.ScrapeInsights(context.Background(), "https://www.amazon.in/dp/"+testProductID)

	assert.False(t, run.Success)
	assert.Contains(t, run.Error, "launch failed")
	assert.NotEqual(t, "", run.ID.String())
}

func TestLooksLikeQuestion(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"plausible question", "Does it support 4K output?", true},
		{"no question mark", "Supports 4K output", false},
		{"too short", "Why?", false},
		{"noise phrase", "Sign in to ask a question?", false},
		{"cart noise", "Add to cart now, why wait?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, looksLikeQuestion(tt.text))
		})
	}
}

func TestPollAttempts(t *testing.T) {
	assert.Equal(t, 1, pollAttempts(0, time.Second))
	assert.Equal(t, 1, pollAttempts(time.Second, 0))
	assert.Equal(t, 1, pollAttempts(500*time.Millisecond, time.Second))
	assert.Equal(t, 21, pollAttempts(10*time.Second, 500*time.Millisecond))
}
