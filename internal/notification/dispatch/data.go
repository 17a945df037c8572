package dispatch

import (
	"context"
	"strings"
	"time"

	"medtour_backend/internal/notification/outbox"
	"medtour_backend/internal/notification/templates"
	"medtour_backend/platform/money"

	"github.com/google/uuid"
)

const (
	displayDateLayout  = "2 January 2006"
	bookingRefLength   = 8
	contentLookupLimit = 2 * time.Second
)

// templateData merges the task payload with the recipient and derived display
// values. Derived keys never overwrite payload keys.
func (p *Processor) templateData(ctx context.Context, rec outbox.Record, recipient Recipient) templates.Data {
	data := templates.Data{}
	for k, v := range rec.DataMap() {
		data[k] = v
	}

	name := strings.TrimSpace(recipient.FullName)
	if name == "" {
		name = defaultPatientName
	}
	setDefault(data, "patient_name", name)
	setDefault(data, "organization_name", p.opts.OrganizationName)
	if p.opts.AppBaseURL != "" {
		setDefault(data, "app_base_url", p.opts.AppBaseURL)
	}

	if total, ok := data["total_amount"].(float64); ok {
		if currency, _ := data["currency"].(string); currency != "" {
			if minor, err := money.FromMajor(total); err == nil {
				setDefault(data, "total_formatted", money.Format(minor, currency))
			}
		}
	}
	if raw, ok := data["valid_until"].(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			setDefault(data, "valid_until_formatted", t.UTC().Format(displayDateLayout))
		}
	}
	if raw, ok := data["booking_id"].(string); ok && raw != "" {
		setDefault(data, "booking_reference", bookingReference(raw))
	}

	p.addContentNames(ctx, data)
	return data
}

func (p *Processor) addContentNames(ctx context.Context, data templates.Data) {
	if p.content == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, contentLookupLimit)
	defer cancel()

	if id, ok := uuidField(data, "hospital_id"); ok {
		if name, err := p.content.HospitalName(ctx, id); err == nil && name != "" {
			setDefault(data, "hospital_name", name)
		} else if err != nil {
			p.log.WithContext(ctx).Warn("hospital name lookup failed", "hospital_id", id, "error", err)
		}
	}
	if id, ok := uuidField(data, "treatment_id"); ok {
		if name, err := p.content.TreatmentName(ctx, id); err == nil && name != "" {
			setDefault(data, "treatment_name", name)
		} else if err != nil {
			p.log.WithContext(ctx).Warn("treatment name lookup failed", "treatment_id", id, "error", err)
		}
	}
}

// bookingReference is the short uppercase reference shown to patients.
func bookingReference(id string) string {
	ref := strings.ReplaceAll(id, "-", "")
	return strings.ToUpper(ref[:min(len(ref), bookingRefLength)])
}

func uuidField(data templates.Data, key string) (uuid.UUID, bool) {
	raw, ok := data[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func setDefault(data templates.Data, key string, value any) {
	if _, exists := data[key]; !exists {
		data[key] = value
	}
}
