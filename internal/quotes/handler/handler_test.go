package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/internal/quotes/repository"
	"medtour_backend/internal/quotes/service"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type quoteConfig struct{}

func (quoteConfig) GetQuoteValidity() time.Duration { return 14 * 24 * time.Hour }
func (quoteConfig) GetDefaultCurrency() string      { return "USD" }
func (quoteConfig) GetOrganizationName() string     { return "MedTour" }

// stubRepo serves one stored quote; every write reports a lost race.
type stubRepo struct {
	quote  *repository.Quote
	writes int
}

func (r *stubRepo) Create(context.Context, *repository.Quote, eventlog.Entry) error { return nil }

func (r *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Quote, error) {
	if r.quote == nil || r.quote.ID != id {
		return nil, apperr.NotFound("quote not found")
	}
	q := *r.quote
	return &q, nil
}

func (r *stubRepo) List(context.Context, *uuid.UUID) ([]repository.Quote, error) { return nil, nil }

func (r *stubRepo) Update(context.Context, *repository.Quote) (*repository.Quote, error) {
	r.writes++
	return nil, repository.ErrStatusChanged
}

func (r *stubRepo) MarkSent(context.Context, uuid.UUID, time.Time, eventlog.Entry, outbox.Task) (*repository.Quote, error) {
	r.writes++
	return nil, repository.ErrStatusChanged
}

func (r *stubRepo) MarkAccepted(context.Context, uuid.UUID, time.Time) (*repository.Quote, error) {
	r.writes++
	return nil, repository.ErrStatusChanged
}

func (r *stubRepo) RecordAcceptance(context.Context, eventlog.Entry, outbox.Task) error { return nil }

func (r *stubRepo) ExpireStale(context.Context, time.Time) (int64, error) { return 0, nil }

func newEngine(repo *stubRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	New(service.New(repo, quoteConfig{}, logger.NewNop()), validator.New()).RegisterRoutes(engine.Group("/api/v1/quotes"))
	return engine
}

func storedQuote(status repository.Status, validUntil time.Time) *repository.Quote {
	return &repository.Quote{
		ID:            uuid.New(),
		JourneyID:     uuid.New(),
		HospitalID:    uuid.New(),
		TreatmentID:   uuid.New(),
		TreatmentCost: 300000,
		TotalAmount:   300000,
		Currency:      "USD",
		Status:        status,
		ValidUntil:    validUntil,
		Version:       1,
	}
}

type errorBody struct {
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func postEmpty(engine *gin.Engine, path string) (*httptest.ResponseRecorder, errorBody) {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestAcceptExpiredQuoteIsGone(t *testing.T) {
	repo := &stubRepo{quote: storedQuote(repository.StatusSent, time.Now().Add(-time.Hour))}
	engine := newEngine(repo)

	rec, body := postEmpty(engine, "/api/v1/quotes/"+repo.quote.ID.String()+"/accept")
	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d: %s", rec.Code, rec.Body.String())
	}
	if body.Code != "EXPIRED" {
		t.Fatalf("expected EXPIRED, got %q", body.Code)
	}
	if repo.writes != 0 {
		t.Fatalf("expired quote must not be written")
	}
}

func TestAcceptDraftQuoteIsInvalidState(t *testing.T) {
	repo := &stubRepo{quote: storedQuote(repository.StatusDraft, time.Now().Add(time.Hour))}
	engine := newEngine(repo)

	rec, body := postEmpty(engine, "/api/v1/quotes/"+repo.quote.ID.String()+"/accept")
	if rec.Code != http.StatusConflict || body.Code != "INVALID_STATE" {
		t.Fatalf("expected 409 INVALID_STATE, got %d: %s", rec.Code, rec.Body.String())
	}
	if body.Details["status"] != "DRAFT" {
		t.Fatalf("expected current status in details, got %v", body.Details)
	}
}

func TestSendSentQuoteIsInvalidState(t *testing.T) {
	repo := &stubRepo{quote: storedQuote(repository.StatusSent, time.Now().Add(time.Hour))}
	engine := newEngine(repo)

	rec, body := postEmpty(engine, "/api/v1/quotes/"+repo.quote.ID.String()+"/send")
	if rec.Code != http.StatusConflict || body.Code != "INVALID_STATE" {
		t.Fatalf("expected 409 INVALID_STATE, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownQuoteIsNotFound(t *testing.T) {
	engine := newEngine(&stubRepo{})

	rec, body := postEmpty(engine, "/api/v1/quotes/"+uuid.NewString()+"/send")
	if rec.Code != http.StatusNotFound || body.Code != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMalformedQuoteIDIsBadRequest(t *testing.T) {
	engine := newEngine(&stubRepo{})

	rec, _ := postEmpty(engine, "/api/v1/quotes/not-a-uuid/accept")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
