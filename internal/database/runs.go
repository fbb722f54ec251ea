package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/profitstory/amazon-review-scraper/internal/models"
)

var ErrRunNotFound = errors.New("scrape run not found")

// RunRepository persists scrape runs and their harvested reviews.
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Migrate creates the schema. Idempotent, safe to run on every startup.
func (r *RunRepository) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS scrape_runs (
			id            UUID PRIMARY KEY,
			product_url   TEXT NOT NULL,
			product_id    TEXT NOT NULL DEFAULT '',
			started_at    TIMESTAMPTZ NOT NULL,
			questions     JSONB NOT NULL DEFAULT '[]',
			insights      JSONB NOT NULL DEFAULT '{}',
			review_count  INT NOT NULL DEFAULT 0,
			data_sources  TEXT[] NOT NULL DEFAULT '{}',
			success       BOOLEAN NOT NULL DEFAULT FALSE,
			error         TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS reviews (
			id                BIGSERIAL PRIMARY KEY,
			run_id            UUID NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
			title             TEXT NOT NULL,
			rating            TEXT NOT NULL,
			body              TEXT NOT NULL,
			author            TEXT NOT NULL,
			review_date       TEXT NOT NULL,
			verified_purchase TEXT NOT NULL,
			helpful_votes     TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_reviews_run_id ON reviews(run_id);
		CREATE INDEX IF NOT EXISTS idx_scrape_runs_product_id ON scrape_runs(product_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// SaveRun persists one run together with its reviews in a single
// transaction, so a run row never exists without its records.
func (r *RunRepository) SaveRun(ctx context.Context, run *models.ScrapeRun, records []models.ReviewRecord) error {
	questions, err := json.Marshal(run.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}
	insights, err := json.Marshal(run.Insights)
	if err != nil {
		return fmt.Errorf("failed to marshal insights: %w", err)
	}

	sources := run.DataSourcesFound
	if sources == nil {
		sources = []string{}
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO scrape_runs
				(id, product_url, product_id, started_at, questions, insights,
				 review_count, data_sources, success, error)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			run.ID, run.ProductURL, run.ProductID, run.StartedAt, questions, insights,
			run.ReviewCount, sources, run.Success, run.Error)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for _, rec := range records {
			_, err := tx.Exec(ctx, `
				INSERT INTO reviews
					(run_id, title, rating, body, author, review_date,
					 verified_purchase, helpful_votes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				run.ID, rec.Title, rec.Rating, rec.Text, rec.Author, rec.Date,
				rec.VerifiedPurchase, rec.HelpfulVotes)
			if err != nil {
				return fmt.Errorf("failed to insert review: %w", err)
			}
		}
		return nil
	})
}

// GetRun loads one run by ID, without its reviews.
func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error) {
	var (
		run       models.ScrapeRun
		questions []byte
		insights  []byte
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, product_url, product_id, started_at, questions, insights,
		       review_count, data_sources, success, error
		FROM scrape_runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.ProductURL, &run.ProductID, &run.StartedAt,
		&questions, &insights, &run.ReviewCount, &run.DataSourcesFound,
		&run.Success, &run.Error)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := json.Unmarshal(questions, &run.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	if err := json.Unmarshal(insights, &run.Insights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal insights: %w", err)
	}

	return &run, nil
}

// GetReviews loads the reviews harvested by one run, in insertion order.
func (r *RunRepository) GetReviews(ctx context.Context, runID uuid.UUID) ([]models.ReviewRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT title, rating, body, author, review_date, verified_purchase, helpful_votes
		FROM reviews WHERE run_id = $1 ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var records []models.ReviewRecord
	for rows.Next() {
		var rec models.ReviewRecord
		if err := rows.Scan(&rec.Title, &rec.Rating, &rec.Text, &rec.Author,
			&rec.Date, &rec.VerifiedPurchase, &rec.HelpfulVotes); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reviews: %w", err)
	}

	return records, nil
}
