// Package scan implements the token verification and redemption engine
// invoked once per QR scan.
package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"mealscan/model"
	"mealscan/repo"
)

// PhotoResolver resolves a participant photo by roll number inside an
// event's Drive folder. Lookups are best effort; the engine never lets
// one block or fail a redemption.
type PhotoResolver interface {
	Lookup(ctx context.Context, folderID, rollNo string) (string, error)
}

// DefaultPhotoTimeout bounds the best-effort photo lookup.
const DefaultPhotoTimeout = 1500 * time.Millisecond

// Engine verifies scanned payloads and commits redemptions.
type Engine struct {
	participants repo.ParticipantStore
	events       repo.EventStore
	stats        repo.StatsStore
	photos       PhotoResolver
	photoTimeout time.Duration
	now          func() time.Time
}

// New constructs an engine. photos may be nil when no Drive folder is
// configured anywhere.
func New(stores repo.Stores, photos PhotoResolver, photoTimeout time.Duration) *Engine {
	if photoTimeout <= 0 {
		photoTimeout = DefaultPhotoTimeout
	}
	return &Engine{
		participants: stores.Participants,
		events:       stores.Events,
		stats:        stores.Stats,
		photos:       photos,
		photoTimeout: photoTimeout,
		now:          time.Now,
	}
}

// parsePayload splits "<identifier>|<mealSlot>". The meal defaults to
// breakfast when the segment is absent or unrecognised.
func parsePayload(payload string) (identifier, meal string, err error) {
	parts := strings.SplitN(payload, "|", 2)
	identifier = strings.TrimSpace(parts[0])
	if identifier == "" {
		return "", "", model.ErrInvalidPayload
	}
	meal = model.MealBreakfast
	if len(parts) == 2 {
		if m := strings.ToLower(strings.TrimSpace(parts[1])); model.IsMealSlot(m) {
			meal = m
		}
	}
	return identifier, meal, nil
}

// Verify evaluates one scan. With dryRun the verdict reports what a
// commit would do without mutating anything; without it, an unredeemed
// slot is atomically marked used and the live counters are bumped.
//
// Two concurrent commits for the same (participant, meal) pair resolve
// to exactly one "verified" and one "used": the store transaction
// re-reads the usage flag, so a dry-run approval going stale is safe.
func (e *Engine) Verify(ctx context.Context, payload string, dryRun bool) (*model.ScanResult, error) {
	identifier, meal, err := parsePayload(payload)
	if err != nil {
		return &model.ScanResult{
			Valid:   false,
			Status:  model.ScanInvalid,
			Message: "invalid QR payload",
		}, err
	}

	p, err := e.resolve(ctx, identifier)
	if err != nil {
		return &model.ScanResult{
			Valid:       false,
			Status:      model.ScanError,
			Message:     "no participant matches this coupon",
			ScanDetails: &model.ScanDetails{MealType: meal},
		}, err
	}

	photoURL := e.lookupPhoto(ctx, p)
	summary := p.Summary(photoURL)
	details := &model.ScanDetails{MealType: meal}

	if p.Used(meal) {
		return &model.ScanResult{
			Valid:       false,
			Status:      model.ScanUsed,
			Message:     fmt.Sprintf("%s already redeemed", meal),
			Participant: summary,
			ScanDetails: details,
		}, nil
	}

	if dryRun {
		return &model.ScanResult{
			Valid:       true,
			Status:      model.ScanEligible,
			Message:     fmt.Sprintf("eligible for %s, confirm to redeem", meal),
			Participant: summary,
			ScanDetails: details,
		}, nil
	}

	already, err := e.participants.Redeem(ctx, p.ID, meal, e.now())
	if err != nil {
		return &model.ScanResult{
			Valid:       false,
			Status:      model.ScanError,
			Message:     "redemption failed, try again",
			Participant: summary,
			ScanDetails: details,
		}, fmt.Errorf("error redeeming %s for %s: %w", meal, p.ID, err)
	}
	if already {
		// Lost the race against a concurrent scan.
		return &model.ScanResult{
			Valid:       false,
			Status:      model.ScanUsed,
			Message:     fmt.Sprintf("%s already redeemed", meal),
			Participant: summary,
			ScanDetails: details,
		}, nil
	}

	// The counters are a rebuildable cache; a failed increment must not
	// undo or fail the committed redemption.
	if err := e.stats.Increment(ctx, p.EventID, meal, p.IsVeg()); err != nil {
		log.Warn().Err(err).
			Str("eventId", p.EventID).
			Str("meal", meal).
			Msg("live stats increment failed, counters stale until reconcile")
	}

	log.Info().
		Str("eventId", p.EventID).
		Str("ticketId", p.TicketID).
		Str("meal", meal).
		Msg("meal redeemed")

	return &model.ScanResult{
		Valid:       true,
		Status:      model.ScanVerified,
		Message:     fmt.Sprintf("%s redeemed", meal),
		Participant: summary,
		ScanDetails: details,
	}, nil
}

// resolve maps the scanned identifier to a participant: ticket ids carry
// the INV- prefix, anything else is a legacy token.
func (e *Engine) resolve(ctx context.Context, identifier string) (*model.Participant, error) {
	if strings.HasPrefix(identifier, model.TicketPrefix) {
		return e.participants.GetByTicketID(ctx, identifier)
	}
	return e.participants.GetByToken(ctx, identifier)
}

// lookupPhoto resolves the participant photo under a bounded timeout.
// Any failure degrades to no photo.
func (e *Engine) lookupPhoto(ctx context.Context, p *model.Participant) *string {
	if e.photos == nil || p.RollNo == "" {
		return nil
	}
	ev, err := e.events.GetEvent(ctx, p.EventID)
	if err != nil || ev.DriveFolderID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.photoTimeout)
	defer cancel()

	type result struct {
		url string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		url, err := e.photos.Lookup(ctx, ev.DriveFolderID, p.RollNo)
		ch <- result{url: url, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil || r.url == "" {
			return nil
		}
		return &r.url
	case <-ctx.Done():
		return nil
	}
}
