package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medtour_backend/internal/pdf"
	"medtour_backend/internal/quotes/repository"
	"medtour_backend/internal/quotes/transport"
	"medtour_backend/platform/apperr"

	"github.com/google/uuid"
)

// PDFStore caches rendered quote documents.
type PDFStore interface {
	Fetch(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, content []byte) error
	URL(ctx context.Context, key string) (string, time.Time, error)
}

// ContentLookup resolves reference names printed on the document.
type ContentLookup interface {
	HospitalName(ctx context.Context, id uuid.UUID) (string, error)
	TreatmentName(ctx context.Context, id uuid.UUID) (string, error)
}

// QuoteDocument is a rendered quote.
type QuoteDocument struct {
	FileName string
	Content  []byte
	Cached   bool
}

// SetPDFStore injects the object store used to cache documents.
func (s *Service) SetPDFStore(store PDFStore) {
	s.store = store
}

// SetContentLookup injects hospital and treatment name resolution.
func (s *Service) SetContentLookup(content ContentLookup) {
	s.content = content
}

// QuotePDF returns the quote document, rendering and caching it on first use.
// Documents are keyed by version, status and last update so any change yields a new file.
func (s *Service) QuotePDF(ctx context.Context, id uuid.UUID) (QuoteDocument, error) {
	if s.store == nil {
		return QuoteDocument{}, apperr.Unavailable("PDF storage is not configured", nil)
	}

	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return QuoteDocument{}, err
	}

	log := s.log.WithContext(ctx)
	key := pdfKey(q)
	doc := QuoteDocument{FileName: fmt.Sprintf("quote-%s.pdf", shortRef(q.ID))}

	cached, ok, err := s.store.Fetch(ctx, key)
	if err != nil {
		log.Warn("quote pdf cache read failed", "quote_id", id, "key", key, "error", err)
	}
	if ok {
		doc.Content = cached
		doc.Cached = true
		return doc, nil
	}

	content, err := s.render(s.pdfData(ctx, q))
	if err != nil {
		return QuoteDocument{}, fmt.Errorf("render quote pdf: %w", err)
	}
	if err := s.store.Put(ctx, key, content); err != nil {
		log.Warn("quote pdf cache write failed", "quote_id", id, "key", key, "error", err)
	}
	doc.Content = content
	return doc, nil
}

// QuotePDFLink makes sure the current document is stored and returns a
// time-limited download link for it.
func (s *Service) QuotePDFLink(ctx context.Context, id uuid.UUID) (transport.PDFLinkResponse, error) {
	if s.store == nil {
		return transport.PDFLinkResponse{}, apperr.Unavailable("PDF storage is not configured", nil)
	}

	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PDFLinkResponse{}, err
	}
	key := pdfKey(q)

	_, ok, err := s.store.Fetch(ctx, key)
	if err != nil {
		return transport.PDFLinkResponse{}, apperr.Unavailable("PDF storage is unreachable", err)
	}
	if !ok {
		content, err := s.render(s.pdfData(ctx, q))
		if err != nil {
			return transport.PDFLinkResponse{}, fmt.Errorf("render quote pdf: %w", err)
		}
		if err := s.store.Put(ctx, key, content); err != nil {
			return transport.PDFLinkResponse{}, apperr.Unavailable("failed to store quote PDF", err)
		}
	}

	url, expiresAt, err := s.store.URL(ctx, key)
	if err != nil {
		return transport.PDFLinkResponse{}, apperr.Unavailable("failed to sign PDF link", err)
	}
	return transport.PDFLinkResponse{URL: url, ExpiresAt: expiresAt}, nil
}

func (s *Service) pdfData(ctx context.Context, q *repository.Quote) pdf.QuotePDFData {
	data := pdf.QuotePDFData{
		Reference:        "Q-" + shortRef(q.ID),
		Status:           string(q.Status),
		OrganizationName: s.cfg.GetOrganizationName(),
		Currency:         q.Currency,
		Lines:            []pdf.CostLine{{Label: "Treatment", Amount: q.TreatmentCost}},
		Total:            q.TotalAmount,
		Notes:            q.Notes,
		CreatedAt:        q.CreatedAt,
		ValidUntil:       q.ValidUntil,
		AcceptedAt:       q.AcceptedAt,
	}
	for _, line := range []pdf.CostLine{
		{Label: "Accommodation", Amount: q.AccommodationCost},
		{Label: "Transport", Amount: q.TransportCost},
		{Label: "Other costs", Amount: q.MiscCost},
	} {
		if line.Amount > 0 {
			data.Lines = append(data.Lines, line)
		}
	}
	for _, item := range q.PaymentSchedule {
		data.Schedule = append(data.Schedule, pdf.Installment{Amount: item.Amount, DueDate: item.DueDate, Description: item.Description})
	}

	if s.content != nil {
		if name, err := s.content.HospitalName(ctx, q.HospitalID); err == nil {
			data.HospitalName = name
		}
		if name, err := s.content.TreatmentName(ctx, q.TreatmentID); err == nil {
			data.TreatmentName = name
		}
	}
	return data
}

func pdfKey(q *repository.Quote) string {
	return fmt.Sprintf("quotes/%s/v%d-%s-%d.pdf", q.ID, q.Version, strings.ToLower(string(q.Status)), q.UpdatedAt.Unix())
}

func shortRef(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
