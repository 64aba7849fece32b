package model

// MealCount is the per-meal redemption tally.
type MealCount struct {
	Total  int `firestore:"total" json:"total"`
	Veg    int `firestore:"veg" json:"veg"`
	NonVeg int `firestore:"nonveg" json:"nonveg"`
}

// LiveStats maps each meal slot to its running counts for one event.
// The incrementally-maintained copy is a cache; recomputing from the
// participants is always the source of truth.
type LiveStats map[string]MealCount

// NewLiveStats returns a zeroed table covering every meal slot.
func NewLiveStats() LiveStats {
	s := make(LiveStats, len(MealSlots))
	for _, m := range MealSlots {
		s[m] = MealCount{}
	}
	return s
}
