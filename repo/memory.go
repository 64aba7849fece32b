package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mealscan/model"
)

// MemoryStore is a mutex-guarded in-memory implementation of the store
// interfaces with the same per-participant redemption semantics as the
// Firestore store. Used by tests and local development.
type MemoryStore struct {
	mu           sync.Mutex
	seq          int
	participants map[string]*model.Participant
	events       map[string]*model.Event
	stats        map[string]model.LiveStats
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		participants: make(map[string]*model.Participant),
		events:       make(map[string]*model.Event),
		stats:        make(map[string]model.LiveStats),
	}
}

// Stores returns the capability bundle backed by this store.
func (ms *MemoryStore) Stores() Stores {
	return Stores{Participants: ms, Events: ms, Stats: ms}
}

func (ms *MemoryStore) nextID(prefix string) string {
	ms.seq++
	return fmt.Sprintf("%s%04d", prefix, ms.seq)
}

// CreateEvent stores a new event and returns its id.
func (ms *MemoryStore) CreateEvent(ctx context.Context, ev *model.Event) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	id := ms.nextID("ev")
	ev.ID = id
	copied := *ev
	ms.events[id] = &copied
	return id, nil
}

// GetEvent returns an event by id.
func (ms *MemoryStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ev, ok := ms.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	copied := *ev
	return &copied, nil
}

// Create stores a new participant and returns its id.
func (ms *MemoryStore) Create(ctx context.Context, p *model.Participant) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	id := ms.nextID("p")
	p.ID = id
	ms.participants[id] = p.Clone()
	return id, nil
}

// CreateBatch stores a batch of participants.
func (ms *MemoryStore) CreateBatch(ctx context.Context, ps []*model.Participant) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, p := range ps {
		id := ms.nextID("p")
		p.ID = id
		ms.participants[id] = p.Clone()
	}
	return len(ps), nil
}

// Get returns a participant by id.
func (ms *MemoryStore) Get(ctx context.Context, id string) (*model.Participant, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	p, ok := ms.participants[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p.Clone(), nil
}

// GetByTicketID resolves a participant by ticket id.
func (ms *MemoryStore) GetByTicketID(ctx context.Context, ticketID string) (*model.Participant, error) {
	return ms.findOne(func(p *model.Participant) bool { return p.TicketID == ticketID })
}

// GetByToken resolves a participant by legacy token.
func (ms *MemoryStore) GetByToken(ctx context.Context, token string) (*model.Participant, error) {
	return ms.findOne(func(p *model.Participant) bool { return p.Token == token })
}

func (ms *MemoryStore) findOne(match func(*model.Participant) bool) (*model.Participant, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, p := range ms.participants {
		if match(p) {
			return p.Clone(), nil
		}
	}
	return nil, model.ErrNotFound
}

// ListByEvent returns every participant of an event in insertion order.
func (ms *MemoryStore) ListByEvent(ctx context.Context, eventID string) ([]*model.Participant, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []*model.Participant
	for _, p := range ms.participants {
		if p.EventID == eventID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListPending returns up to limit pending participants of an event.
func (ms *MemoryStore) ListPending(ctx context.Context, eventID, rollNo string, limit int) ([]*model.Participant, error) {
	all, err := ms.listPending(eventID, rollNo)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// CountPending counts pending participants of an event.
func (ms *MemoryStore) CountPending(ctx context.Context, eventID, rollNo string) (int, error) {
	all, err := ms.listPending(eventID, rollNo)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (ms *MemoryStore) listPending(eventID, rollNo string) ([]*model.Participant, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var out []*model.Participant
	for _, p := range ms.participants {
		if p.EventID != eventID || p.Status != model.StatusGenerated {
			continue
		}
		if rollNo != "" && p.RollNo != rollNo {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetStatus transitions the coupon-delivery status of a participant.
func (ms *MemoryStore) SetStatus(ctx context.Context, id, status string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	p, ok := ms.participants[id]
	if !ok {
		return model.ErrNotFound
	}
	p.Status = status
	return nil
}

// SetRollNo backfills the roll number of a participant. The legacy
// token follows the roll number so roll-based scan payloads resolve.
func (ms *MemoryStore) SetRollNo(ctx context.Context, id, rollNo string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	p, ok := ms.participants[id]
	if !ok {
		return model.ErrNotFound
	}
	p.RollNo = rollNo
	p.Token = rollNo
	return nil
}

// Redeem marks a meal slot used under the store lock. Exactly one of two
// concurrent calls observes the unredeemed state.
func (ms *MemoryStore) Redeem(ctx context.Context, id, meal string, at time.Time) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	p, ok := ms.participants[id]
	if !ok {
		return false, model.ErrNotFound
	}
	if p.Used(meal) {
		return true, nil
	}
	if p.TokenUsage == nil {
		p.TokenUsage = model.NewTokenUsage()
	}
	p.TokenUsage[meal] = true
	p.SetCheckIn(meal, at)
	return false, nil
}

// Increment bumps the cached counters for one redemption.
func (ms *MemoryStore) Increment(ctx context.Context, eventID, meal string, veg bool) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	stats, ok := ms.stats[eventID]
	if !ok {
		stats = model.NewLiveStats()
		ms.stats[eventID] = stats
	}
	count := stats[meal]
	count.Total++
	if veg {
		count.Veg++
	} else {
		count.NonVeg++
	}
	stats[meal] = count
	return nil
}

// GetStats returns the cached counter table for an event.
func (ms *MemoryStore) GetStats(ctx context.Context, eventID string) (model.LiveStats, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	stats, ok := ms.stats[eventID]
	if !ok {
		return model.NewLiveStats(), nil
	}
	out := make(model.LiveStats, len(stats))
	for k, v := range stats {
		out[k] = v
	}
	return out, nil
}

// ReplaceStats overwrites the cached counters.
func (ms *MemoryStore) ReplaceStats(ctx context.Context, eventID string, stats model.LiveStats) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	copied := make(model.LiveStats, len(stats))
	for k, v := range stats {
		copied[k] = v
	}
	ms.stats[eventID] = copied
	return nil
}
