package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"medtour_backend/internal/eventlog"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/internal/pdf"
	"medtour_backend/internal/quotes/repository"
	"medtour_backend/internal/quotes/transport"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/logger"

	"github.com/google/uuid"
)

const unexpectedErrFmt = "unexpected error: %v"

type harness struct {
	svc      *Service
	repo     *memoryRepo
	bookings *fakeBookings
	journey  uuid.UUID
	now      time.Time
}

func newHarness() *harness {
	h := &harness{journey: uuid.New(), bookings: &fakeBookings{}, now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	h.repo = newMemoryRepo(h.journey)
	h.svc = New(h.repo, fakeConfig{}, logger.NewNop())
	h.svc.SetBookingCreator(h.bookings)
	h.svc.SetClock(func() time.Time { return h.now })
	return h
}

func (h *harness) create(t *testing.T, mutate func(*transport.CreateQuoteRequest)) transport.QuoteResponse {
	t.Helper()
	req := transport.CreateQuoteRequest{
		JourneyID:         h.journey,
		HospitalID:        uuid.New(),
		TreatmentID:       uuid.New(),
		TreatmentCost:     3000,
		AccommodationCost: 500,
		TransportCost:     200,
	}
	if mutate != nil {
		mutate(&req)
	}
	q, err := h.svc.Create(context.Background(), "coord-1", req)
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	return q
}

func TestQuoteLifecycleCreateSendAccept(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	q := h.create(t, nil)
	if q.TotalAmount != 3700 || q.Status != "DRAFT" || q.Currency != "USD" || q.Version != 1 {
		t.Fatalf("unexpected draft %#v", q)
	}
	if !q.ValidUntil.Equal(h.now.Add(14 * 24 * time.Hour)) {
		t.Fatalf("expected default validity of 14 days, got %v", q.ValidUntil)
	}
	if len(h.repo.tasks) != 0 {
		t.Fatalf("creating a quote must not notify")
	}

	sent, err := h.svc.Send(ctx, q.ID, "coord-1")
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	if sent.Status != "SENT" || sent.SentAt == nil {
		t.Fatalf("unexpected sent quote %#v", sent)
	}
	if len(h.repo.tasks) != 1 || h.repo.tasks[0].TemplateName != outbox.TemplateQuoteReady || h.repo.tasks[0].Priority != outbox.PriorityHigh {
		t.Fatalf("expected one high priority quote_ready task, got %#v", h.repo.tasks)
	}

	h.now = h.now.Add(48 * time.Hour)
	res, err := h.svc.Accept(ctx, q.ID, "")
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	if res.Quote.Status != "ACCEPTED" || res.BookingID == nil || res.PartialFailure != nil {
		t.Fatalf("unexpected accept result %#v", res)
	}
	if len(h.bookings.requests) != 1 || h.bookings.requests[0].TotalAmount != 370000 || h.bookings.requests[0].Currency != "USD" {
		t.Fatalf("unexpected booking request %#v", h.bookings.requests)
	}

	accepted := h.repo.eventsOfType(eventlog.TypeQuoteAccepted)
	if len(accepted) != 1 || accepted[0].ActorType != eventlog.ActorPatient {
		t.Fatalf("expected one patient QUOTE_ACCEPTED event, got %#v", accepted)
	}
	if accepted[0].Data["booking_id"] != res.BookingID.String() {
		t.Fatalf("event does not reference the booking: %#v", accepted[0].Data)
	}
	if last := h.repo.tasks[len(h.repo.tasks)-1]; last.TemplateName != outbox.TemplateQuoteAccepted {
		t.Fatalf("expected quote_accepted notification, got %s", last.TemplateName)
	}

	_, err = h.svc.Accept(ctx, q.ID, "")
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState on second accept, got %v", err)
	}
	if len(h.bookings.requests) != 1 {
		t.Fatalf("second accept must not create another booking")
	}
}

func TestCreateQuoteValidation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	past := h.now.Add(-time.Hour)

	cases := []struct {
		name   string
		mutate func(*transport.CreateQuoteRequest)
		kind   apperr.Kind
	}{
		{"zero treatment", func(r *transport.CreateQuoteRequest) { r.TreatmentCost = 0 }, apperr.KindValidation},
		{"negative misc", func(r *transport.CreateQuoteRequest) { r.MiscCost = -1 }, apperr.KindValidation},
		{"bad currency", func(r *transport.CreateQuoteRequest) { r.Currency = "dollars" }, apperr.KindValidation},
		{"past validity", func(r *transport.CreateQuoteRequest) { r.ValidUntil = &past }, apperr.KindValidation},
		{"unknown journey", func(r *transport.CreateQuoteRequest) { r.JourneyID = uuid.New() }, apperr.KindNotFound},
	}
	for _, tc := range cases {
		req := transport.CreateQuoteRequest{
			JourneyID: h.journey, HospitalID: uuid.New(), TreatmentID: uuid.New(), TreatmentCost: 1000,
		}
		tc.mutate(&req)
		_, err := h.svc.Create(ctx, "", req)
		if !apperr.Is(err, tc.kind) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}

	if n := len(h.repo.quotes); n != 0 {
		t.Fatalf("rejected quotes must not be stored, found %d", n)
	}
}

func TestCreateQuoteNormalizesCurrency(t *testing.T) {
	h := newHarness()
	q := h.create(t, func(r *transport.CreateQuoteRequest) { r.Currency = "krw" })
	if q.Currency != "KRW" {
		t.Fatalf("expected KRW, got %s", q.Currency)
	}
}

func TestSendRequiresDraft(t *testing.T) {
	h := newHarness()
	q := h.create(t, nil)
	if _, err := h.svc.Send(context.Background(), q.ID, ""); err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	_, err := h.svc.Send(context.Background(), q.ID, "")
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if len(h.repo.tasks) != 1 {
		t.Fatalf("expected a single notification, got %d", len(h.repo.tasks))
	}
}

func TestAcceptRejectsDraftAndExpired(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	draft := h.create(t, nil)
	if _, err := h.svc.Accept(ctx, draft.ID, ""); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState for draft, got %v", err)
	}

	expired := h.create(t, nil)
	if _, err := h.svc.Send(ctx, expired.ID, ""); err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	h.repo.setStatus(expired.ID, repository.StatusExpired)
	if _, err := h.svc.Accept(ctx, expired.ID, ""); !apperr.Is(err, apperr.KindExpired) {
		t.Fatalf("expected Expired for EXPIRED status, got %v", err)
	}

	if _, err := h.svc.Accept(ctx, uuid.New(), ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAcceptAtValidUntilIsExpired(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	q := h.create(t, nil)
	if _, err := h.svc.Send(ctx, q.ID, ""); err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}

	h.now = q.ValidUntil
	_, err := h.svc.Accept(ctx, q.ID, "")
	if !apperr.Is(err, apperr.KindExpired) {
		t.Fatalf("expected Expired, got %v", err)
	}
	stored, _ := h.repo.GetByID(ctx, q.ID)
	if stored.Status != repository.StatusSent {
		t.Fatalf("expired accept must not change status, got %s", stored.Status)
	}
	if len(h.bookings.requests) != 0 {
		t.Fatalf("expired accept must not create a booking")
	}
}

func TestAcceptExpiredByStoreCheckIsExpired(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	q := h.create(t, nil)
	if _, err := h.svc.Send(ctx, q.ID, ""); err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}

	h.now = q.ValidUntil.Add(-time.Second)
	h.repo.storeClockAhead = time.Minute
	_, err := h.svc.Accept(ctx, q.ID, "")
	if !apperr.Is(err, apperr.KindExpired) {
		t.Fatalf("expected Expired, got %v", err)
	}
	if len(h.bookings.requests) != 0 {
		t.Fatalf("rejected accept must not create a booking")
	}
}

func TestAcceptReportsBookingFailure(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.bookings.err = errStoreDown

	q := h.create(t, nil)
	if _, err := h.svc.Send(ctx, q.ID, ""); err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}

	res, err := h.svc.Accept(ctx, q.ID, "")
	if err != nil {
		t.Fatalf("accept must succeed for the quote, got %v", err)
	}
	if res.PartialFailure == nil || res.PartialFailure.Step != StepCreateBooking {
		t.Fatalf("expected create_booking partial failure, got %#v", res.PartialFailure)
	}
	if res.BookingID != nil {
		t.Fatalf("expected no booking id")
	}
	stored, _ := h.repo.GetByID(ctx, q.ID)
	if stored.Status != repository.StatusAccepted {
		t.Fatalf("quote must stay ACCEPTED, got %s", stored.Status)
	}
	if events := h.repo.eventsOfType(eventlog.TypeQuoteAccepted); len(events) != 1 || events[0].Data["booking_id"] != nil {
		t.Fatalf("expected acceptance event without booking, got %#v", events)
	}
}

func TestAcceptReportsRecordFailure(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.repo.failRecordAcceptance = errStoreDown

	q := h.create(t, nil)
	if _, err := h.svc.Send(ctx, q.ID, ""); err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}

	res, err := h.svc.Accept(ctx, q.ID, "")
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	if res.BookingID == nil {
		t.Fatalf("booking should have been created")
	}
	if res.PartialFailure == nil || res.PartialFailure.Step != StepRecordAcceptance {
		t.Fatalf("expected record_acceptance partial failure, got %#v", res.PartialFailure)
	}
}

func TestUpdateQuote(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	q := h.create(t, nil)

	misc := 99.99
	notes := "  includes <b>interpreter</b> "
	updated, err := h.svc.Update(ctx, q.ID, transport.UpdateQuoteRequest{MiscCost: &misc, Notes: &notes})
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	if updated.TotalAmount != 3799.99 {
		t.Fatalf("expected recomputed total 3799.99, got %v", updated.TotalAmount)
	}
	if updated.Notes == nil || *updated.Notes != "includes interpreter" {
		t.Fatalf("expected sanitized notes, got %v", updated.Notes)
	}

	zero := 0.0
	if _, err := h.svc.Update(ctx, q.ID, transport.UpdateQuoteRequest{TreatmentCost: &zero}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}

	h.repo.setStatus(q.ID, repository.StatusAccepted)
	if _, err := h.svc.Update(ctx, q.ID, transport.UpdateQuoteRequest{MiscCost: &misc}); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState for accepted quote, got %v", err)
	}
}

func TestExpireStaleQuotesOnlyTouchesSent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	draft := h.create(t, nil)
	sent := h.create(t, nil)
	accepted := h.create(t, nil)
	for _, id := range []uuid.UUID{sent.ID, accepted.ID} {
		if _, err := h.svc.Send(ctx, id, ""); err != nil {
			t.Fatalf(unexpectedErrFmt, err)
		}
	}
	if _, err := h.svc.Accept(ctx, accepted.ID, ""); err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}

	h.now = h.now.Add(15 * 24 * time.Hour)
	n, err := h.svc.ExpireStaleQuotes(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one expired quote, got %d (%v)", n, err)
	}
	if n, _ := h.svc.ExpireStaleQuotes(ctx); n != 0 {
		t.Fatalf("second sweep must be a no-op, expired %d", n)
	}

	want := map[uuid.UUID]repository.Status{
		draft.ID:    repository.StatusDraft,
		sent.ID:     repository.StatusExpired,
		accepted.ID: repository.StatusAccepted,
	}
	for id, status := range want {
		q, _ := h.repo.GetByID(ctx, id)
		if q.Status != status {
			t.Fatalf("quote %s: expected %s, got %s", id, status, q.Status)
		}
	}

	if _, err := h.svc.Accept(ctx, sent.ID, ""); !apperr.Is(err, apperr.KindExpired) {
		t.Fatalf("expected Expired after sweep, got %v", err)
	}
}

func TestListQuotesNewestFirst(t *testing.T) {
	h := newHarness()
	first := h.create(t, nil)
	h.now = h.now.Add(time.Minute)
	second := h.create(t, nil)

	list, err := h.svc.List(context.Background(), &h.journey)
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	if len(list.Items) != 2 || list.Items[0].ID != second.ID || list.Items[1].ID != first.ID {
		t.Fatalf("unexpected order %#v", list.Items)
	}
}

func TestQuotePDFRendersOnceThenServesCache(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	q := h.create(t, nil)

	if _, err := h.svc.QuotePDF(ctx, q.ID); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected Unavailable without storage, got %v", err)
	}

	store := &memoryStore{objects: map[string][]byte{}}
	h.svc.SetPDFStore(store)
	renders := 0
	h.svc.render = func(data pdf.QuotePDFData) ([]byte, error) {
		renders++
		if data.Total != 370000 || len(data.Lines) != 3 {
			t.Fatalf("unexpected pdf data %#v", data)
		}
		return []byte("%PDF-1.3 fake"), nil
	}

	doc, err := h.svc.QuotePDF(ctx, q.ID)
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	if doc.Cached || !strings.HasSuffix(doc.FileName, ".pdf") {
		t.Fatalf("unexpected first document %#v", doc)
	}

	doc, err = h.svc.QuotePDF(ctx, q.ID)
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	if !doc.Cached || renders != 1 {
		t.Fatalf("expected cached document after one render, renders=%d", renders)
	}

	store.readErr = errStoreDown
	if _, err := h.svc.QuotePDF(ctx, q.ID); err != nil {
		t.Fatalf("cache read failure must fall back to rendering, got %v", err)
	}
	if renders != 2 {
		t.Fatalf("expected a second render, got %d", renders)
	}
}

func TestQuotePDFLinkStoresDocumentFirst(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	q := h.create(t, nil)

	store := &memoryStore{objects: map[string][]byte{}}
	h.svc.SetPDFStore(store)
	h.svc.render = func(pdf.QuotePDFData) ([]byte, error) { return []byte("%PDF"), nil }

	link, err := h.svc.QuotePDFLink(ctx, q.ID)
	if err != nil {
		t.Fatalf(unexpectedErrFmt, err)
	}
	if len(store.objects) != 1 {
		t.Fatalf("expected the document to be stored, found %d objects", len(store.objects))
	}
	for key := range store.objects {
		if link.URL != "https://objects.test/"+key {
			t.Fatalf("link %q does not point at %q", link.URL, key)
		}
	}

	store.readErr = errStoreDown
	if _, err := h.svc.QuotePDFLink(ctx, q.ID); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}
