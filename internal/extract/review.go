package extract

import (
	"github.com/profitstory/amazon-review-scraper/internal/dom"
	"github.com/profitstory/amazon-review-scraper/internal/models"
)

// ReviewContainerSelector matches one review block on a reviews page.
const ReviewContainerSelector = `[data-hook="review"]`

// Per-field locator chains for a review container. Amazon serves several
// markup variants for the same widget, so each field lists the hooks seen
// across product pages, most common first.
var (
	titleSpec = FieldSpec{
		Name: "title",
		Strategies: []Strategy{
			{Selector: `[data-hook="review-title"] span:last-child`},
			{Selector: `[data-hook="review-title"]`},
			{Selector: `a.review-title`},
		},
	}

	ratingSpec = FieldSpec{
		Name: "rating",
		Strategies: []Strategy{
			{Selector: `[data-hook="review-star-rating"]`},
			{Selector: `[data-hook="cmps-review-star-rating"]`},
			{Selector: `i.review-rating`},
		},
	}

	textSpec = FieldSpec{
		Name: "text",
		Strategies: []Strategy{
			{Selector: `[data-hook="review-body"] span`},
			{Selector: `[data-hook="review-body"]`},
			{Selector: `.review-text-content`},
		},
	}

	authorSpec = FieldSpec{
		Name: "author",
		Strategies: []Strategy{
			{Selector: `[data-hook="genome-widget"] .a-profile-name`},
			{Selector: `[data-hook="genome-widget"] a`},
			{Selector: `.a-profile-name`},
		},
	}

	dateSpec = FieldSpec{
		Name: "date",
		Strategies: []Strategy{
			{Selector: `[data-hook="review-date"]`},
			{Selector: `.review-date`},
		},
	}

	helpfulSpec = FieldSpec{
		Name: "helpful_votes",
		Strategies: []Strategy{
			{Selector: `[data-hook="helpful-vote-statement"]`},
			{Selector: `.cr-vote-text`},
		},
	}

	verifiedSelector = `[data-hook="avp-badge"]`
)

// Review extracts one ReviewRecord from a review container. Every field is
// resolved independently; a record is only abandoned when the session
// itself is gone.
func Review(container dom.Element) (models.ReviewRecord, error) {
	var rec models.ReviewRecord

	title, err := Extract(container, titleSpec)
	if err != nil {
		return rec, err
	}
	rec.Title = title.Value

	rating, err := Rating(container, ratingSpec)
	if err != nil {
		return rec, err
	}
	rec.Rating = rating.Value

	body, err := Extract(container, textSpec)
	if err != nil {
		return rec, err
	}
	rec.Text = body.Value

	author, err := Extract(container, authorSpec)
	if err != nil {
		return rec, err
	}
	rec.Author = author.Value

	date, err := Extract(container, dateSpec)
	if err != nil {
		return rec, err
	}
	rec.Date = date.Value

	verified, err := Presence(container, verifiedSelector)
	if err != nil {
		return rec, err
	}
	rec.VerifiedPurchase = verified.Value

	helpful, err := Extract(container, helpfulSpec)
	if err != nil {
		return rec, err
	}
	// An absent vote statement means zero votes, not missing data.
	if helpful.Found {
		rec.HelpfulVotes = helpful.Value
	} else {
		rec.HelpfulVotes = "0"
	}

	return rec, nil
}
