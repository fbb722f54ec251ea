package models

// FieldUnavailable is the placeholder written in place of a field no
// locator strategy could resolve. It keeps tabular output rectangular:
// absent values are encoded explicitly, never omitted.
const FieldUnavailable = "N/A"

// ReviewRecord is one harvested review. All fields are strings so that a
// partially extracted record still serializes cleanly; missing fields hold
// FieldUnavailable (HelpfulVotes defaults to "0" because an absent vote
// statement means zero votes, not missing data).
type ReviewRecord struct {
	Title            string `json:"title"`
	Rating           string `json:"rating"`
	Text             string `json:"text"`
	Author           string `json:"author"`
	Date             string `json:"date"`
	VerifiedPurchase string `json:"verified_purchase"`
	HelpfulVotes     string `json:"helpful_votes"`
}

// ReviewCSVHeader is the fixed column contract consumed by downstream
// analysis tooling. Order and names must not change.
var ReviewCSVHeader = []string{"title", "rating", "text", "author", "date", "verified_purchase", "helpful_votes"}

// CSVRow returns the record's values in ReviewCSVHeader order.
func (r ReviewRecord) CSVRow() []string {
	return []string{r.Title, r.Rating, r.Text, r.Author, r.Date, r.VerifiedPurchase, r.HelpfulVotes}
}
