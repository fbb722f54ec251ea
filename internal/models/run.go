package models

import (
	"time"

	"github.com/google/uuid"
)

// Sentiment classifies an insight aspect.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
)

// Question is one Q&A prompt pill found on a product page. Numbers are
// 1-indexed in discovery order.
type Question struct {
	Number   int    `json:"question_number"`
	Text     string `json:"question_text"`
	Selector string `json:"selector_used"`
}

// Aspect is one "customers say" aspect chip with its probed sentiment.
type Aspect struct {
	Number    int       `json:"aspect_number"`
	Text      string    `json:"aspect_text"`
	Sentiment Sentiment `json:"sentiment"`
	AriaLabel string    `json:"aria_label,omitempty"`
	Selector  string    `json:"selector_used"`
}

// InsightBundle holds the "customers say" summary and aspect chips
// extracted from a single product page visit.
type InsightBundle struct {
	Summary string   `json:"customers_say_summary"`
	Aspects []Aspect `json:"aspects"`
}

// Empty reports whether the bundle carries no data at all.
func (b InsightBundle) Empty() bool {
	return b.Summary == "" && len(b.Aspects) == 0
}

// Data source tags recorded on a run.
const (
	SourceQuestions        = "rufus_questions"
	SourceCustomerInsights = "customer_insights"
	SourceReviews          = "reviews"
)

// ScrapeRun is the aggregate outcome of one end-to-end scrape invocation.
// Success means at least one data source yielded data; a run that found
// nothing is reported as an unsuccessful-but-clean result, distinct from a
// run that failed (Error set).
type ScrapeRun struct {
	ID               uuid.UUID     `json:"id"`
	ProductURL       string        `json:"product_url"`
	ProductID        string        `json:"product_id,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	Questions        []Question    `json:"rufus_questions,omitempty"`
	Insights         InsightBundle `json:"customer_insights"`
	ReviewCount      int           `json:"review_count"`
	DataSourcesFound []string      `json:"data_sources_found"`
	Success          bool          `json:"success"`
	Error            string        `json:"error,omitempty"`
}

// NewScrapeRun creates a run in its initial (not yet successful) state.
func NewScrapeRun(productURL string) *ScrapeRun {
	return &ScrapeRun{
		ID:         uuid.New(),
		ProductURL: productURL,
		StartedAt:  time.Now(),
	}
}

// AddSource records that a data source yielded data.
func (r *ScrapeRun) AddSource(tag string) {
	r.DataSourcesFound = append(r.DataSourcesFound, tag)
}

// Finalize sets the success flag from the accumulated data sources.
func (r *ScrapeRun) Finalize() {
	r.Success = len(r.DataSourcesFound) > 0 && r.Error == ""
}
