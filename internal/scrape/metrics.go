package scrape

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the orchestrator.
type Metrics struct {
	Registry       *prometheus.Registry
	PagesTotal     prometheus.Counter
	RecordsTotal   prometheus.Counter
	RecordErrors   prometheus.Counter
	RunsTotal      *prometheus.CounterVec
	QuestionsTotal prometheus.Counter
	AspectsTotal   prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_pages_harvested_total",
			Help: "Total review pages harvested across all runs.",
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_harvested_total",
			Help: "Total review records harvested across all runs.",
		},
	)
	recordErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_record_errors_total",
			Help: "Total review records skipped due to extraction errors.",
		},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_runs_total",
			Help: "Total scrape runs by terminal status.",
		},
		[]string{"kind", "status"},
	)
	questions := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_questions_found_total",
			Help: "Total Q&A prompt pills discovered.",
		},
	)
	aspects := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_aspects_found_total",
			Help: "Total insight aspect chips discovered.",
		},
	)

	registry.MustRegister(pages, records, recordErrors, runs, questions, aspects)

	return &Metrics{
		Registry:       registry,
		PagesTotal:     pages,
		RecordsTotal:   records,
		RecordErrors:   recordErrors,
		RunsTotal:      runs,
		QuestionsTotal: questions,
		AspectsTotal:   aspects,
	}
}

// AddPages adds to the harvested-pages counter.
func (m *Metrics) AddPages(n int) {
	if m == nil {
		return
	}
	m.PagesTotal.Add(float64(n))
}

// AddRecords adds to the harvested-records counter.
func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.Add(float64(n))
}

// AddRecordErrors adds to the skipped-records counter.
func (m *Metrics) AddRecordErrors(n int) {
	if m == nil {
		return
	}
	m.RecordErrors.Add(float64(n))
}

// IncRun increments the run counter for a kind ("insights" or "reviews")
// and terminal status ("success", "empty" or "failed").
func (m *Metrics) IncRun(kind, status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(kind, status).Inc()
}

// AddQuestions adds to the discovered-questions counter.
func (m *Metrics) AddQuestions(n int) {
	if m == nil {
		return
	}
	m.QuestionsTotal.Add(float64(n))
}

// AddAspects adds to the discovered-aspects counter.
func (m *Metrics) AddAspects(n int) {
	if m == nil {
		return
	}
	m.AspectsTotal.Add(float64(n))
}
