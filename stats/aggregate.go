// Package stats maintains the per-event meal redemption tallies. The
// recomputed table is the source of truth; the incrementally-updated
// counters in the store are a fast-path cache reconciled from it.
package stats

import (
	"context"
	"fmt"

	"mealscan/model"
	"mealscan/repo"
)

// Aggregator recomputes and reconciles live stats for an event.
type Aggregator struct {
	participants repo.ParticipantStore
	stats        repo.StatsStore
}

// NewAggregator constructs an aggregator.
func NewAggregator(participants repo.ParticipantStore, stats repo.StatsStore) *Aggregator {
	return &Aggregator{participants: participants, stats: stats}
}

// Recompute scans every participant of the event and counts redeemed
// slots per meal, bucketed by food preference. For any redemption
// history it matches what the incremental counters would hold.
func (a *Aggregator) Recompute(ctx context.Context, eventID string) (model.LiveStats, error) {
	ps, err := a.participants.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("error scanning roster for stats: %w", err)
	}

	table := model.NewLiveStats()
	for _, p := range ps {
		veg := p.IsVeg()
		for _, meal := range model.MealSlots {
			if !p.Used(meal) {
				continue
			}
			count := table[meal]
			count.Total++
			if veg {
				count.Veg++
			} else {
				count.NonVeg++
			}
			table[meal] = count
		}
	}
	return table, nil
}

// Reconcile recomputes the table and writes it over the cached counters.
func (a *Aggregator) Reconcile(ctx context.Context, eventID string) (model.LiveStats, error) {
	table, err := a.Recompute(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := a.stats.ReplaceStats(ctx, eventID, table); err != nil {
		return nil, err
	}
	return table, nil
}

// Cached returns the incrementally-maintained counters.
func (a *Aggregator) Cached(ctx context.Context, eventID string) (model.LiveStats, error) {
	return a.stats.GetStats(ctx, eventID)
}
