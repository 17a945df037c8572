// Package outbox is the table-backed notification queue. The engine only
// enqueues; the dispatch worker claims rows and records delivery outcomes.
// Delivery is at-least-once: duplicates are possible and tolerated downstream.
package outbox

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the delivery state of a notification row.
type Status string

const (
	StatusPending    Status = "pending"
	StatusEnqueued   Status = "enqueued"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Channel is the delivery medium.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// Priority orders claiming: high before normal before low, then oldest first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Template names understood by the dispatch worker.
const (
	TemplateWelcome          = "welcome"
	TemplateQuoteReady       = "quote_ready"
	TemplateQuoteAccepted    = "quote_accepted"
	TemplateBookingConfirmed = "booking_confirmed"
	TemplatePaymentReceived  = "payment_received"
	TemplateTravelReminder   = "travel_reminder"
)

// Task is a unit of outbound communication to enqueue.
type Task struct {
	JourneyID    uuid.UUID
	TemplateName string
	Channel      Channel
	Priority     Priority
	Data         map[string]any
}

func (t Task) validate() error {
	if t.JourneyID == uuid.Nil {
		return errors.New("outbox: journey id is required")
	}
	if t.TemplateName == "" {
		return errors.New("outbox: template name is required")
	}
	switch t.Channel {
	case ChannelEmail, ChannelWhatsApp, ChannelSMS:
	default:
		return errors.New("outbox: unknown channel")
	}
	switch t.Priority {
	case PriorityHigh, PriorityNormal, PriorityLow, "":
	default:
		return errors.New("outbox: unknown priority")
	}
	return nil
}

// Record is a claimed notification row.
type Record struct {
	ID           uuid.UUID
	JourneyID    uuid.UUID
	TemplateName string
	Channel      Channel
	Priority     Priority
	Data         json.RawMessage
	Status       Status
	Attempts     int
	CreatedAt    time.Time
}

// DataMap decodes the payload. Malformed payloads decode to an empty map.
func (r Record) DataMap() map[string]any {
	out := map[string]any{}
	if len(r.Data) > 0 {
		_ = json.Unmarshal(r.Data, &out)
	}
	return out
}
