// Package dispatch delivers queued notifications. The same Processor drains
// batches for the HTTP trigger and handles single rows for the asynq worker.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"medtour_backend/internal/email"
	"medtour_backend/internal/notification/outbox"
	"medtour_backend/internal/notification/templates"
	"medtour_backend/internal/whatsapp"
	"medtour_backend/platform/apperr"
	"medtour_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 50
	defaultConcurrency = 5
	defaultMaxAttempts = 5
	defaultRetryBase   = time.Minute
	maxRetryDelay      = time.Hour
	defaultPatientName = "Patient"

	reasonIntakeMissing  = "Patient intake not found"
	reasonInvalidChannel = "Invalid channel or missing contact info"
)

// Queue is the outbox side the processor drives.
type Queue interface {
	ClaimPending(ctx context.Context, limit int, to outbox.Status) ([]outbox.Record, error)
	Acquire(ctx context.Context, id uuid.UUID) (outbox.Record, bool, error)
	MarkSent(ctx context.Context, id uuid.UUID, externalID *string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkPending(ctx context.Context, id uuid.UUID, reason *string, availableAt time.Time) error
}

type RecipientResolver interface {
	Recipient(ctx context.Context, journeyID uuid.UUID) (Recipient, error)
}

// ContentLookup resolves reference names used in templates.
type ContentLookup interface {
	HospitalName(ctx context.Context, id uuid.UUID) (string, error)
	TreatmentName(ctx context.Context, id uuid.UUID) (string, error)
}

type EmailSender interface {
	Send(ctx context.Context, msg email.Message) (string, error)
}

type WhatsAppSender interface {
	SendTemplate(ctx context.Context, to, name string, params []string) (string, error)
}

// Options tunes batch size, fan-out and retry behaviour. Zero values use defaults.
type Options struct {
	BatchSize        int
	Concurrency      int
	MaxAttempts      int
	RetryBase        time.Duration
	OrganizationName string
	AppBaseURL       string
}

// Result counts the outcome of one batch.
type Result struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type Processor struct {
	queue      Queue
	recipients RecipientResolver
	catalog    *templates.Catalog
	email      EmailSender
	whatsapp   WhatsAppSender
	content    ContentLookup
	opts       Options
	log        *logger.Logger
	now        func() time.Time
}

func NewProcessor(queue Queue, recipients RecipientResolver, catalog *templates.Catalog, emailSender EmailSender, whatsappSender WhatsAppSender, opts Options, log *logger.Logger) *Processor {
	if opts.BatchSize < 1 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}
	return &Processor{
		queue:      queue,
		recipients: recipients,
		catalog:    catalog,
		email:      emailSender,
		whatsapp:   whatsappSender,
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

// SetContentLookup enables hospital and treatment names in templates.
func (p *Processor) SetContentLookup(content ContentLookup) {
	p.content = content
}

// SetClock replaces the time source. Used by tests.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// ProcessBatch claims up to BatchSize due notifications, highest priority and
// oldest first, and delivers them with bounded concurrency.
func (p *Processor) ProcessBatch(ctx context.Context) (Result, error) {
	records, err := p.queue.ClaimPending(ctx, p.opts.BatchSize, outbox.StatusProcessing)
	if err != nil {
		return Result{}, err
	}

	var processed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, rec := range records {
		g.Go(func() error {
			if p.deliver(gctx, rec) {
				processed.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Result{Processed: int(processed.Load()), Failed: int(failed.Load())}, nil
}

// ProcessOne delivers a single enqueued notification. Rows already taken by
// another worker are skipped without error.
func (p *Processor) ProcessOne(ctx context.Context, id uuid.UUID) error {
	rec, ok, err := p.queue.Acquire(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		p.log.WithContext(ctx).Debug("notification already handled", "notification_id", id)
		return nil
	}
	p.deliver(ctx, rec)
	return nil
}

// deliver sends one record and settles its row. Reports whether it was sent.
func (p *Processor) deliver(ctx context.Context, rec outbox.Record) bool {
	log := p.log.WithContext(ctx)

	externalID, err := p.send(ctx, rec)
	if err == nil {
		var ext *string
		if externalID != "" {
			ext = &externalID
		}
		if markErr := p.queue.MarkSent(ctx, rec.ID, ext); markErr != nil {
			log.DatabaseError("outbox.MarkSent", markErr)
		}
		log.NotificationDispatched(rec.ID.String(), rec.TemplateName, string(rec.Channel), true, "")
		return true
	}

	p.settleFailure(ctx, rec, err)
	return false
}

func (p *Processor) settleFailure(ctx context.Context, rec outbox.Record, cause error) {
	log := p.log.WithContext(ctx)
	reason := cause.Error()

	var perm *permanentError
	if errors.As(cause, &perm) || rec.Attempts >= p.opts.MaxAttempts {
		if err := p.queue.MarkFailed(ctx, rec.ID, reason); err != nil {
			log.DatabaseError("outbox.MarkFailed", err)
		}
		log.NotificationDispatched(rec.ID.String(), rec.TemplateName, string(rec.Channel), false, reason)
		return
	}

	retryAt := p.now().UTC().Add(p.retryDelay(rec.Attempts))
	if err := p.queue.MarkPending(ctx, rec.ID, &reason, retryAt); err != nil {
		log.DatabaseError("outbox.MarkPending", err)
	}
	log.NotificationDispatched(rec.ID.String(), rec.TemplateName, string(rec.Channel), false,
		fmt.Sprintf("%s (retry %d/%d at %s)", reason, rec.Attempts, p.opts.MaxAttempts, retryAt.Format(time.RFC3339)))
}

// retryDelay doubles from RetryBase per attempt, capped at one hour.
func (p *Processor) retryDelay(attempts int) time.Duration {
	delay := p.opts.RetryBase
	for i := 1; i < attempts && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

func (p *Processor) send(ctx context.Context, rec outbox.Record) (string, error) {
	recipient, err := p.recipients.Recipient(ctx, rec.JourneyID)
	if apperr.Is(err, apperr.KindNotFound) {
		return "", permanent(reasonIntakeMissing)
	}
	if err != nil {
		return "", err
	}

	if !p.catalog.Has(rec.TemplateName) {
		return "", permanent("Unknown template: " + rec.TemplateName)
	}
	data := p.templateData(ctx, rec, recipient)

	switch {
	case rec.Channel == outbox.ChannelEmail && strings.TrimSpace(recipient.Email) != "":
		msg, err := p.catalog.RenderEmail(rec.TemplateName, data)
		if err != nil {
			return "", permanent(err.Error())
		}
		id, err := p.email.Send(ctx, email.Message{
			To:      strings.TrimSpace(recipient.Email),
			ToName:  recipient.FullName,
			Subject: msg.Subject,
			HTML:    msg.HTML,
			Text:    msg.Text,
		})
		if errors.Is(err, email.ErrDisabled) {
			return "", permanent(err.Error())
		}
		return id, err

	case rec.Channel == outbox.ChannelWhatsApp && strings.TrimSpace(recipient.Phone) != "" && p.whatsapp != nil:
		msg, err := p.catalog.RenderWhatsApp(rec.TemplateName, data)
		if err != nil {
			return "", permanent(err.Error())
		}
		id, err := p.whatsapp.SendTemplate(ctx, recipient.Phone, msg.Name, msg.Params)
		if errors.Is(err, whatsapp.ErrNotConfigured) {
			return "", permanent(err.Error())
		}
		return id, err

	default:
		return "", permanent(reasonInvalidChannel)
	}
}

type permanentError struct {
	reason string
}

func (e *permanentError) Error() string { return e.reason }

func permanent(reason string) error {
	return &permanentError{reason: reason}
}
