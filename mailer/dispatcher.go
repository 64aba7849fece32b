// Package mailer streams coupon emails to pending participants in small
// resumable batches: each invocation handles at most one batch and
// reports whether more remain, so a short execution budget suffices.
package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"mealscan/model"
	"mealscan/repo"
)

// Renderer produces the coupon document attached to the email.
type Renderer interface {
	RenderCoupon(p *model.Participant, ev *model.Event, meals []string) ([]byte, error)
}

// Transport delivers one email with an attached coupon.
type Transport interface {
	Send(ctx context.Context, to, subject, html string, attachment []byte, filename string) error
}

// DefaultBatchSize bounds the work one invocation does.
const DefaultBatchSize = 25

// Progress is one record of the dispatch progress stream.
type Progress struct {
	Status    string `json:"status"` // started | progress | completed | error
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Success   int    `json:"success"`
	Failed    int    `json:"failed"`
	HasMore   bool   `json:"hasMore"`
	Message   string `json:"message,omitempty"`
}

// Dispatcher sends coupon emails to participants whose status is still
// generated and marks them sent on delivery.
type Dispatcher struct {
	participants repo.ParticipantStore
	events       repo.EventStore
	renderer     Renderer
	transport    Transport
	batchSize    int
}

// NewDispatcher constructs a dispatcher processing batchSize pending
// participants per invocation.
func NewDispatcher(stores repo.Stores, renderer Renderer, transport Transport, batchSize int) *Dispatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Dispatcher{
		participants: stores.Participants,
		events:       stores.Events,
		renderer:     renderer,
		transport:    transport,
		batchSize:    batchSize,
	}
}

// Run processes one batch of pending participants for the event,
// optionally filtered to a single roll number, emitting a progress
// record per delivery through report. The terminal record carries
// HasMore; the caller re-invokes until it is false. A failed delivery
// keeps the participant generated, eligible for retry next invocation.
func (d *Dispatcher) Run(ctx context.Context, eventID, rollNo string, report func(Progress)) (Progress, error) {
	emit := func(p Progress) {
		if report != nil {
			report(p)
		}
	}

	ev, err := d.events.GetEvent(ctx, eventID)
	if err != nil {
		final := Progress{Status: "error", Message: "event not found"}
		emit(final)
		return final, err
	}
	meals := ev.Meals()

	total, err := d.participants.CountPending(ctx, eventID, rollNo)
	if err != nil {
		final := Progress{Status: "error", Message: "could not count pending participants"}
		emit(final)
		return final, fmt.Errorf("error counting pending participants: %w", err)
	}
	emit(Progress{Status: "started", Total: total})

	pending, err := d.participants.ListPending(ctx, eventID, rollNo, d.batchSize)
	if err != nil {
		final := Progress{Status: "error", Total: total, Message: "could not list pending participants"}
		emit(final)
		return final, fmt.Errorf("error listing pending participants: %w", err)
	}

	processed, success, failed := 0, 0, 0
	for _, p := range pending {
		processed++
		if err := d.deliver(ctx, p, ev, meals); err != nil {
			failed++
			log.Warn().Err(err).
				Str("ticketId", p.TicketID).
				Str("email", p.Email).
				Msg("coupon delivery failed, kept pending for retry")
		} else {
			success++
		}
		emit(Progress{
			Status:    "progress",
			Processed: processed,
			Total:     total,
			Success:   success,
			Failed:    failed,
		})
	}

	remaining, err := d.participants.CountPending(ctx, eventID, rollNo)
	if err != nil {
		// The batch itself succeeded; surface its counts anyway.
		remaining = total - success
	}
	final := Progress{
		Status:    "completed",
		Processed: processed,
		Total:     total,
		Success:   success,
		Failed:    failed,
		HasMore:   remaining > 0,
	}
	emit(final)
	return final, nil
}

func (d *Dispatcher) deliver(ctx context.Context, p *model.Participant, ev *model.Event, meals []string) error {
	if p.Email == "" {
		return fmt.Errorf("participant %s has no email", p.ID)
	}
	coupon, err := d.renderer.RenderCoupon(p, ev, meals)
	if err != nil {
		return fmt.Errorf("error rendering coupon: %w", err)
	}

	subject := fmt.Sprintf("Your meal coupons for %s", ev.Name)
	html := fmt.Sprintf(`
		<h2>Meal coupons for %s</h2>
		<p>Hi %s,</p>
		<p>Your coupon booklet is attached. Ticket ID: <b>%s</b></p>
		<p>Show the QR for each meal at the counter.</p>
	`, ev.Name, p.Name, p.TicketID)

	filename := fmt.Sprintf("coupons-%s.pdf", p.TicketID)
	if err := d.transport.Send(ctx, p.Email, subject, html, coupon, filename); err != nil {
		return fmt.Errorf("error sending coupon email: %w", err)
	}

	if err := d.participants.SetStatus(ctx, p.ID, model.StatusSent); err != nil {
		return fmt.Errorf("error marking participant sent: %w", err)
	}
	return nil
}
