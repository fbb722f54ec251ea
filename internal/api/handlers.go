// Package api exposes the scraper over HTTP for internal services that
// prefer request/response over the CLI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/profitstory/amazon-review-scraper/internal/database"
	"github.com/profitstory/amazon-review-scraper/internal/models"
)

// Scraper is the orchestrator surface the handlers drive.
type Scraper interface {
	ScrapeInsights(ctx context.Context, productURL string) *models.ScrapeRun
	ScrapeReviews(ctx context.Context, productID string, ownProduct bool, maxPages int) ([]models.ReviewRecord, *models.ScrapeRun)
}

// RunStore persists finished runs. Nil disables persistence.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.ScrapeRun, records []models.ReviewRecord) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error)
	GetReviews(ctx context.Context, runID uuid.UUID) ([]models.ReviewRecord, error)
}

// EventPublisher announces finished runs. Nil disables eventing.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, run *models.ScrapeRun) error
}

type Handlers struct {
	scraper   Scraper
	store     RunStore
	publisher EventPublisher
	logger    *slog.Logger
}

func NewHandlers(scraper Scraper, store RunStore, publisher EventPublisher, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper:   scraper,
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "api"),
	}
}

// Router builds the route tree. Middleware is the caller's business.
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/insights", h.ScrapeInsights)
		r.Post("/reviews", h.ScrapeReviews)
		r.Get("/runs/{runID}", h.GetRun)
		r.Get("/runs/{runID}/reviews", h.GetRunReviews)
	})

	return r
}

// InsightsRequest asks for a product page insight scrape.
type InsightsRequest struct {
	ProductURL string `json:"product_url"`
}

// ScrapeInsights runs the insights flow synchronously. Scrapes take tens of
// seconds; callers are internal services that expect to wait.
func (h *Handlers) ScrapeInsights(w http.ResponseWriter, r *http.Request) {
	var req InsightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductURL == "" {
		h.respondError(w, http.StatusBadRequest, "product_url is required")
		return
	}

	run := h.scraper.ScrapeInsights(r.Context(), req.ProductURL)
	h.finishRun(r.Context(), run, nil)

	h.respondJSON(w, http.StatusOK, run)
}

// ReviewsRequest asks for a filtered review scrape.
type ReviewsRequest struct {
	ProductID  string `json:"product_id"`
	OwnProduct bool   `json:"own_product"`
	MaxPages   int    `json:"max_pages"`
}

// ReviewsResponse bundles the run with its harvested records.
type ReviewsResponse struct {
	Run     *models.ScrapeRun     `json:"run"`
	Reviews []models.ReviewRecord `json:"reviews"`
}

// ScrapeReviews runs the reviews flow synchronously.
func (h *Handlers) ScrapeReviews(w http.ResponseWriter, r *http.Request) {
	var req ReviewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductID == "" {
		h.respondError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	records, run := h.scraper.ScrapeReviews(r.Context(), req.ProductID, req.OwnProduct, req.MaxPages)
	h.finishRun(r.Context(), run, records)

	h.respondJSON(w, http.StatusOK, ReviewsResponse{Run: run, Reviews: records})
}

// GetRun returns a persisted run by ID.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusNotImplemented, "run storage is not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			h.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.Error("failed to load run", "run_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

// GetRunReviews returns the reviews a persisted run harvested.
func (h *Handlers) GetRunReviews(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusNotImplemented, "run storage is not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	records, err := h.store.GetReviews(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load reviews", "run_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}

	h.respondJSON(w, http.StatusOK, records)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// finishRun persists and publishes a run, best-effort: the scrape result
// already belongs to the caller, storage trouble must not discard it.
func (h *Handlers) finishRun(ctx context.Context, run *models.ScrapeRun, records []models.ReviewRecord) {
	if h.store != nil {
		if err := h.store.SaveRun(ctx, run, records); err != nil {
			h.logger.Error("failed to persist run", "run_id", run.ID, "error", err)
		}
	}
	if h.publisher != nil {
		if err := h.publisher.PublishRunCompleted(ctx, run); err != nil {
			h.logger.Error("failed to publish run event", "run_id", run.ID, "error", err)
		}
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
