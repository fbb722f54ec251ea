package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profitstory/amazon-review-scraper/internal/database"
	"github.com/profitstory/amazon-review-scraper/internal/models"
)

type fakeScraper struct {
	insightsRun *models.ScrapeRun
	reviews     []models.ReviewRecord
	reviewsRun  *models.ScrapeRun

	gotURL       string
	gotProductID string
	gotOwn       bool
	gotMaxPages  int
}

func (f *fakeScraper) ScrapeInsights(ctx context.Context, productURL string) *models.ScrapeRun {
	f.gotURL = productURL
	return f.insightsRun
}

func (f *fakeScraper) ScrapeReviews(ctx context.Context, productID string, ownProduct bool, maxPages int) ([]models.ReviewRecord, *models.ScrapeRun) {
	f.gotProductID = productID
	f.gotOwn = ownProduct
	f.gotMaxPages = maxPages
	return f.reviews, f.reviewsRun
}

type fakeStore struct {
	runs  map[uuid.UUID]*models.ScrapeRun
	saved int
}

func newFakeStore() *fakeStore {
	return &fakeStore{runs: map[uuid.UUID]*models.ScrapeRun{}}
}

func (f *fakeStore) SaveRun(ctx context.Context, run *models.ScrapeRun, records []models.ReviewRecord) error {
	f.runs[run.ID] = run
	f.saved++
	return nil
}

func (f *fakeStore) GetRun(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, database.ErrRunNotFound
	}
	return run, nil
}

func (f *fakeStore) GetReviews(ctx context.Context, runID uuid.UUID) ([]models.ReviewRecord, error) {
	return nil, nil
}

type fakePublisher struct {
	published int
}

func (f *fakePublisher) PublishRunCompleted(ctx context.Context, run *models.ScrapeRun) error {
	f.published++
	return nil
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestScrapeInsightsEndpoint(t *testing.T) {
	run := models.NewScrapeRun("https://www.amazon.in/dp/B08N5WRWNW")
	run.AddSource(models.SourceCustomerInsights)
	run.Finalize()

	scraper := &fakeScraper{insightsRun: run}
	store := newFakeStore()
	pub := &fakePublisher{}
	router := NewHandlers(scraper, store, pub, slog.Default()).Router()

	rec := postJSON(t, router, "/api/v1/insights", InsightsRequest{ProductURL: run.ProductURL})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, run.ProductURL, scraper.gotURL)
	assert.Equal(t, 1, store.saved, "run must be persisted")
	assert.Equal(t, 1, pub.published, "run event must be published")

	var got models.ScrapeRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, got.Success)
}

func TestScrapeInsightsValidation(t *testing.T) {
	router := NewHandlers(&fakeScraper{}, nil, nil, slog.Default()).Router()

	rec := postJSON(t, router, "/api/v1/insights", InsightsRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/insights", bytes.NewReader([]byte("{broken")))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestScrapeReviewsEndpoint(t *testing.T) {
	run := models.NewScrapeRun("https://www.amazon.com/product-reviews/B08N5WRWNW/")
	run.ProductID = "B08N5WRWNW"
	run.ReviewCount = 2
	run.AddSource(models.SourceReviews)
	run.Finalize()

	scraper := &fakeScraper{
		reviews: []models.ReviewRecord{
			{Title: "Great", Rating: "5"},
			{Title: "Bad", Rating: "1"},
		},
		reviewsRun: run,
	}
	router := NewHandlers(scraper, nil, nil, slog.Default()).Router()

	rec := postJSON(t, router, "/api/v1/reviews", ReviewsRequest{
		ProductID: "B08N5WRWNW", OwnProduct: true, MaxPages: 3,
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "B08N5WRWNW", scraper.gotProductID)
	assert.True(t, scraper.gotOwn)
	assert.Equal(t, 3, scraper.gotMaxPages)

	var resp ReviewsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Reviews, 2)
	assert.Equal(t, run.ID, resp.Run.ID)
}

func TestScrapeReviewsValidation(t *testing.T) {
	router := NewHandlers(&fakeScraper{}, nil, nil, slog.Default()).Router()

	rec := postJSON(t, router, "/api/v1/reviews", ReviewsRequest{OwnProduct: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun(t *testing.T) {
	store := newFakeStore()
	run := models.NewScrapeRun("https://www.amazon.in/dp/B08N5WRWNW")
	store.runs[run.ID] = run

	router := NewHandlers(&fakeScraper{}, store, nil, slog.Default()).Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+run.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got models.ScrapeRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
}

func TestGetRunNotFound(t *testing.T) {
	router := NewHandlers(&fakeScraper{}, newFakeStore(), nil, slog.Default()).Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunInvalidID(t *testing.T) {
	router := NewHandlers(&fakeScraper{}, newFakeStore(), nil, slog.Default()).Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunWithoutStore(t *testing.T) {
	router := NewHandlers(&fakeScraper{}, nil, nil, slog.Default()).Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHealth(t *testing.T) {
	router := NewHandlers(&fakeScraper{}, nil, nil, slog.Default()).Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
