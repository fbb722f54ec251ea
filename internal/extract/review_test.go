package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profitstory/amazon-review-scraper/internal/dom"
	"github.com/profitstory/amazon-review-scraper/internal/models"
)

const fullReviewHTML = `<body>
<div data-hook="review">
	<div data-hook="genome-widget"><a><span class="a-profile-name">Priya S.</span></a></div>
	<a data-hook="review-title"><span>Excellent build quality</span></a>
	<i data-hook="review-star-rating" class="a-icon a-star-5"></i>
	<span data-hook="review-date">Reviewed in India on 12 March 2025</span>
	<span data-hook="avp-badge">Verified Purchase</span>
	<div data-hook="review-body"><span>Works exactly as advertised, battery lasts two days.</span></div>
	<span data-hook="helpful-vote-statement">14 people found this helpful</span>
</div>
</body>`

func TestReviewFullRecord(t *testing.T) {
	page, err := dom.FromHTML(fullReviewHTML, "")
	require.NoError(t, err)
	container, err := page.Query(ReviewContainerSelector)
	require.NoError(t, err)
	require.NotNil(t, container)

	rec, err := Review(container)
	require.NoError(t, err)

	assert.Equal(t, "Excellent build quality", rec.Title)
	assert.Equal(t, "5", rec.Rating)
	assert.Equal(t, "Works exactly as advertised, battery lasts two days.", rec.Text)
	assert.Equal(t, "Priya S.", rec.Author)
	assert.Equal(t, "Reviewed in India on 12 March 2025", rec.Date)
	assert.Equal(t, "Yes", rec.VerifiedPurchase)
	assert.Equal(t, "14 people found this helpful", rec.HelpfulVotes)
}

func TestReviewSparseRecord(t *testing.T) {
	page, err := dom.FromHTML(`<body>
	<div data-hook="review">
		<div data-hook="review-body"><span>Short note.</span></div>
	</div>
	</body>`, "")
	require.NoError(t, err)
	container, err := page.Query(ReviewContainerSelector)
	require.NoError(t, err)

	rec, err := Review(container)
	require.NoError(t, err)

	assert.Equal(t, models.FieldUnavailable, rec.Title)
	assert.Equal(t, models.FieldUnavailable, rec.Rating)
	assert.Equal(t, "Short note.", rec.Text)
	assert.Equal(t, models.FieldUnavailable, rec.Author)
	assert.Equal(t, models.FieldUnavailable, rec.Date)
	assert.Equal(t, "No", rec.VerifiedPurchase)
	assert.Equal(t, "0", rec.HelpfulVotes, "absent vote statement means zero votes")
}

func TestReviewCSVRowMatchesHeader(t *testing.T) {
	rec := models.ReviewRecord{
		Title: "t", Rating: "5", Text: "x", Author: "a",
		Date: "d", VerifiedPurchase: "Yes", HelpfulVotes: "0",
	}

	assert.Equal(t, []string{"title", "rating", "text", "author", "date", "verified_purchase", "helpful_votes"}, models.ReviewCSVHeader)
	assert.Len(t, rec.CSVRow(), len(models.ReviewCSVHeader))
}
