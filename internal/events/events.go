// Package events publishes run summaries to a Redis stream so downstream
// consumers (pricing, dashboards) learn about fresh data without polling
// the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/profitstory/amazon-review-scraper/internal/models"
)

// RunStream is the stream run-completed events are appended to.
const RunStream = "stream:scrape_runs"

const eventTypeRunCompleted = "scrape_run.completed"

// RedisClient is the subset of redis.Client the publisher needs, kept
// narrow for testing.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher appends run-completed events to the Redis stream.
type Publisher struct {
	redis  RedisClient
	logger *slog.Logger
}

func NewPublisher(client RedisClient, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		logger: logger.With("component", "events"),
	}
}

// PublishRunCompleted appends a summary of the run. The full payload goes
// into the data field as JSON; the flat fields exist for consumers that
// filter without parsing.
func (p *Publisher) PublishRunCompleted(ctx context.Context, run *models.ScrapeRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: RunStream,
		Values: map[string]interface{}{
			"data":         string(payload),
			"type":         eventTypeRunCompleted,
			"run_id":       run.ID.String(),
			"product_id":   run.ProductID,
			"success":      fmt.Sprintf("%t", run.Success),
			"review_count": fmt.Sprintf("%d", run.ReviewCount),
			"timestamp":    fmt.Sprintf("%d", time.Now().UnixNano()),
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("run event published",
		"run_id", run.ID, "stream", RunStream, "success", run.Success)
	return nil
}
