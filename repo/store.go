// Package repo implements persistence for events, participants and live
// stats, backed by Firestore in production and by an in-memory store in
// tests and local runs.
package repo

import (
	"context"
	"time"

	"mealscan/model"
)

// ParticipantStore is the durable participant collection.
type ParticipantStore interface {
	// Create persists a new participant and returns its document id.
	Create(ctx context.Context, p *model.Participant) (string, error)
	// CreateBatch persists a batch of new participants in one write batch
	// and returns how many were committed.
	CreateBatch(ctx context.Context, ps []*model.Participant) (int, error)
	// Get returns a participant by document id.
	Get(ctx context.Context, id string) (*model.Participant, error)
	// GetByTicketID resolves a participant by its globally-unique ticket id.
	GetByTicketID(ctx context.Context, ticketID string) (*model.Participant, error)
	// GetByToken resolves a participant by its legacy redemption token.
	GetByToken(ctx context.Context, token string) (*model.Participant, error)
	// ListByEvent returns every participant of an event.
	ListByEvent(ctx context.Context, eventID string) ([]*model.Participant, error)
	// ListPending returns up to limit participants of an event whose coupon
	// email is still pending, optionally filtered to one roll number.
	ListPending(ctx context.Context, eventID, rollNo string, limit int) ([]*model.Participant, error)
	// CountPending counts the participants ListPending would page through.
	CountPending(ctx context.Context, eventID, rollNo string) (int, error)
	// SetStatus transitions the coupon-delivery status of a participant.
	SetStatus(ctx context.Context, id, status string) error
	// SetRollNo backfills the roll number of a participant.
	SetRollNo(ctx context.Context, id, rollNo string) error
	// Redeem atomically marks a meal slot used and records the check-in
	// time. It reports already=true, without mutating, when the slot was
	// redeemed before this call. Concurrent calls for the same
	// (participant, meal) pair serialize so that exactly one wins.
	Redeem(ctx context.Context, id, meal string, at time.Time) (already bool, err error)
}

// EventStore is the durable event collection.
type EventStore interface {
	CreateEvent(ctx context.Context, ev *model.Event) (string, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}

// StatsStore holds the incrementally-maintained live counters. The
// counters are a cache over the participants and may be rebuilt at any
// time, so they do not require transactional coupling to redemption.
type StatsStore interface {
	// Increment bumps the total and the veg/nonveg bucket for one meal.
	Increment(ctx context.Context, eventID, meal string, veg bool) error
	// GetStats returns the cached counter table for an event.
	GetStats(ctx context.Context, eventID string) (model.LiveStats, error)
	// ReplaceStats overwrites the cached counters with a recomputed table.
	ReplaceStats(ctx context.Context, eventID string, stats model.LiveStats) error
}

// Stores bundles the capability interfaces the engines consume.
type Stores struct {
	Participants ParticipantStore
	Events       EventStore
	Stats        StatsStore
}
