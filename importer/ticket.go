package importer

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"mealscan/model"
)

// TicketIssuer generates human-readable ticket ids of the form
// INV-<6 timestamp digits>-<counter>. The counter starts at a random
// per-process offset, and Next re-rolls on a hit against the taken set,
// so a collision is never silently issued.
type TicketIssuer struct {
	now     func() time.Time
	counter uint64
}

// NewTicketIssuer constructs an issuer with an injectable clock.
func NewTicketIssuer(now func() time.Time) *TicketIssuer {
	return &TicketIssuer{
		now:     now,
		counter: uint64(rand.Intn(9000) + 1000),
	}
}

// Next returns a fresh ticket id not present in taken, and records it
// there so later calls in the same run cannot reuse it.
func (t *TicketIssuer) Next(taken map[string]struct{}) string {
	for {
		n := atomic.AddUint64(&t.counter, 1)
		id := fmt.Sprintf("%s%06d-%d", model.TicketPrefix, t.now().Unix()%1000000, n)
		if _, exists := taken[id]; exists {
			continue
		}
		if taken != nil {
			taken[id] = struct{}{}
		}
		return id
	}
}
