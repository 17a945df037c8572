package service

import (
	"math"
	"testing"

	"medtour_backend/internal/quotes/repository"
	"medtour_backend/internal/quotes/transport"
	"medtour_backend/platform/apperr"
)

func TestCostsFromMajorSumsExactly(t *testing.T) {
	c, err := costsFromMajor(3000, 500, 200, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Total() != 370000 {
		t.Fatalf("expected 370000 minor units, got %d", c.Total())
	}
}

func TestCostsFromMajorAvoidsFloatDrift(t *testing.T) {
	c, err := costsFromMajor(0.1, 0.2, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Total() != 30 {
		t.Fatalf("expected 30 minor units, got %d", c.Total())
	}
}

func TestCostsFromMajorRejectsInvalid(t *testing.T) {
	cases := []struct {
		name                                       string
		treatment, accommodation, transport, misc float64
	}{
		{"zero treatment", 0, 0, 0, 0},
		{"negative treatment", -1, 0, 0, 0},
		{"negative accommodation", 100, -1, 0, 0},
		{"negative transport", 100, 0, -5, 0},
		{"negative misc", 100, 0, 0, -0.5},
		{"nan", math.NaN(), 0, 0, 0},
		{"infinite", 100, math.Inf(1), 0, 0},
	}
	for _, tc := range cases {
		_, err := costsFromMajor(tc.treatment, tc.accommodation, tc.transport, tc.misc)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: expected Validation, got %v", tc.name, err)
		}
	}
}

func TestApplyCostsKeepsTotalConsistent(t *testing.T) {
	q := &repository.Quote{}
	applyCosts(q, Costs{Treatment: 100000, Accommodation: 25050, Transport: 1999, Misc: 1})
	if q.TotalAmount != q.TreatmentCost+q.AccommodationCost+q.TransportCost+q.MiscCost {
		t.Fatalf("total %d does not match components", q.TotalAmount)
	}
}

func TestScheduleFromRequest(t *testing.T) {
	schedule, err := scheduleFromRequest([]transport.InstallmentRequest{
		{Amount: 1000, DueDate: "2026-04-01", Description: "Deposit"},
		{Amount: 2700.5, DueDate: "2026-05-01", Description: "Balance"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schedule) != 2 || schedule[1].Amount != 270050 {
		t.Fatalf("unexpected schedule %#v", schedule)
	}

	if _, err := scheduleFromRequest([]transport.InstallmentRequest{{Amount: 10, DueDate: "01/04/2026"}}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation for bad due date, got %v", err)
	}
}
