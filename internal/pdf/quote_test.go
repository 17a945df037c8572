package pdf

import (
	"bytes"
	"testing"
	"time"
)

func TestGenerateQuotePDF(t *testing.T) {
	notes := "Airport pickup included."
	accepted := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	data := QuotePDFData{
		Reference:        "Q-1A2B3C4D",
		Status:           "ACCEPTED",
		OrganizationName: "MedTour",
		HospitalName:     "Seoul National Hospital",
		TreatmentName:    "Rhinoplasty",
		Currency:         "USD",
		Lines: []CostLine{
			{Label: "Treatment", Amount: 300000},
			{Label: "Accommodation", Amount: 50000},
			{Label: "Transport", Amount: 20000},
		},
		Total:      370000,
		Schedule:   []Installment{{Amount: 100000, DueDate: "2026-03-15", Description: "Deposit"}},
		Notes:      &notes,
		CreatedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ValidUntil: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
		AcceptedAt: &accepted,
	}

	out, err := GenerateQuotePDF(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("expected a PDF document, got %q", out[:min(len(out), 8)])
	}
}
