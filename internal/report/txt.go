package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/profitstory/amazon-review-scraper/internal/models"
)

// InsightReport renders a scrape run as the plain-text report operators
// read directly. The layout mirrors the historical report format, so
// existing tooling that greps these files keeps working.
func InsightReport(run *models.ScrapeRun) string {
	var b strings.Builder

	rule := strings.Repeat("=", 80)
	section := strings.Repeat("=", 50)

	b.WriteString(rule + "\n")
	b.WriteString("AMAZON PRODUCT DATA EXTRACTION RESULTS\n")
	b.WriteString(rule + "\n\n")

	fmt.Fprintf(&b, "Product URL: %s\n", run.ProductURL)
	if run.ProductID != "" {
		fmt.Fprintf(&b, "Product ID: %s\n", run.ProductID)
	}
	fmt.Fprintf(&b, "Scraped At: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Data Sources: %s\n\n", strings.Join(run.DataSourcesFound, ", "))

	if len(run.Questions) > 0 {
		b.WriteString(section + "\n")
		fmt.Fprintf(&b, "RUFUS QUESTIONS (%d found)\n", len(run.Questions))
		b.WriteString(section + "\n\n")
		for i, q := range run.Questions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q.Text)
		}
		b.WriteString("\n")
	}

	if !run.Insights.Empty() {
		b.WriteString(section + "\n")
		b.WriteString("CUSTOMER INSIGHTS\n")
		b.WriteString(section + "\n\n")

		if run.Insights.Summary != "" {
			b.WriteString("CUSTOMERS SAY SUMMARY:\n")
			b.WriteString(strings.Repeat("-", 25) + "\n")
			b.WriteString(run.Insights.Summary + "\n\n")
		}

		if len(run.Insights.Aspects) > 0 {
			fmt.Fprintf(&b, "CUSTOMER ASPECTS (%d found):\n", len(run.Insights.Aspects))
			b.WriteString(strings.Repeat("-", 30) + "\n")
			for _, a := range run.Insights.Aspects {
				fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(a.Sentiment)), a.Text)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(section + "\n")
	if run.Error != "" {
		fmt.Fprintf(&b, "\nError Details: %s\n", run.Error)
	}
	b.WriteString("\n" + rule + "\n")
	b.WriteString("END OF REPORT\n")
	b.WriteString(rule + "\n")

	return b.String()
}

// WriteInsightReport renders the run and writes it to a file.
func WriteInsightReport(filename string, run *models.ScrapeRun) error {
	if err := ensureDir(filename); err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(InsightReport(run)), 0o644); err != nil {
		return fmt.Errorf("write insight report: %w", err)
	}
	return nil
}
