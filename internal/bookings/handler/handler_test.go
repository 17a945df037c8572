package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"medtour_backend/internal/bookings/repository"
	"medtour_backend/internal/bookings/service"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/logger"
	"medtour_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type region string

func (r region) GetDefaultPhoneRegion() string { return string(r) }

type stubRepo struct {
	booking   *repository.Booking
	updates   int
	updateErr error
}

func (r *stubRepo) CreateFromQuote(context.Context, *repository.Booking) (uuid.UUID, error) {
	return uuid.Nil, apperr.Internal("not used")
}

func (r *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.Booking, error) {
	if r.booking == nil || r.booking.ID != id {
		return nil, apperr.NotFound("booking not found")
	}
	b := *r.booking
	return &b, nil
}

func (r *stubRepo) List(context.Context, repository.ListParams) ([]repository.Booking, int, error) {
	return nil, 0, nil
}

func (r *stubRepo) Update(_ context.Context, b *repository.Booking, _ repository.Status, _ *outbox.Task) (*repository.Booking, error) {
	r.updates++
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	return b, nil
}

func newEngine(repo *stubRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	New(service.New(repo, region("TR"), logger.NewNop()), validator.New()).RegisterRoutes(engine.Group("/api/v1/bookings"))
	return engine
}

func booking(status repository.Status) *repository.Booking {
	return &repository.Booking{ID: uuid.New(), QuoteID: uuid.New(), JourneyID: uuid.New(), TotalAmount: 370000, Currency: "USD", Status: status}
}

type errorBody struct {
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

func patch(t *testing.T, engine *gin.Engine, path string, payload any) (*httptest.ResponseRecorder, errorBody) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestUpdateTerminalBookingIsInvalidState(t *testing.T) {
	repo := &stubRepo{booking: booking(repository.StatusCancelled)}
	engine := newEngine(repo)

	rec, body := patch(t, engine, "/api/v1/bookings/"+repo.booking.ID.String(), map[string]any{"specialRequirements": "wheelchair"})
	if rec.Code != http.StatusConflict || body.Code != "INVALID_STATE" {
		t.Fatalf("expected 409 INVALID_STATE, got %d: %s", rec.Code, rec.Body.String())
	}
	if body.Details["status"] != "CANCELLED" {
		t.Fatalf("expected current status in details, got %v", body.Details)
	}
	if repo.updates != 0 {
		t.Fatalf("terminal booking must not be written")
	}
}

func TestUpdateLosingStatusRaceConflicts(t *testing.T) {
	repo := &stubRepo{booking: booking(repository.StatusPendingPayment), updateErr: repository.ErrStatusChanged}
	engine := newEngine(repo)

	rec, body := patch(t, engine, "/api/v1/bookings/"+repo.booking.ID.String(), map[string]any{"status": "DEPOSIT_PAID"})
	if rec.Code != http.StatusConflict || body.Code != "CONFLICT" {
		t.Fatalf("expected 409 CONFLICT, got %d: %s", rec.Code, rec.Body.String())
	}
	if body.Details["reason"] != "stale_status" {
		t.Fatalf("expected stale_status reason, got %v", body.Details)
	}
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	repo := &stubRepo{booking: booking(repository.StatusPendingPayment)}
	engine := newEngine(repo)

	rec, body := patch(t, engine, "/api/v1/bookings/"+repo.booking.ID.String(), map[string]any{"status": "SHIPPED"})
	if rec.Code != http.StatusBadRequest || body.Details["status"] == nil {
		t.Fatalf("expected 400 naming status, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetUnknownBookingIsNotFound(t *testing.T) {
	engine := newEngine(&stubRepo{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/"+uuid.NewString(), nil))
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusNotFound || body.Code != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d: %s", rec.Code, rec.Body.String())
	}
}
