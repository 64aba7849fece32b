package model

import (
	"strings"
	"time"
)

// Meal slots that compose the redemption state of a participant.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealSnacks    = "snacks"
	MealDinner    = "dinner"
	MealIcecream  = "icecream"
)

// MealSlots lists every supported meal slot in serving order.
var MealSlots = []string{MealBreakfast, MealLunch, MealSnacks, MealDinner, MealIcecream}

// IsMealSlot reports whether s names a supported meal slot.
func IsMealSlot(s string) bool {
	for _, m := range MealSlots {
		if s == m {
			return true
		}
	}
	return false
}

// Participant lifecycle statuses. Status tracks coupon delivery only and
// is independent of meal-redemption state.
const (
	StatusGenerated = "generated"
	StatusSent      = "sent"
)

// TicketPrefix distinguishes ticket-id scan payloads from legacy bare tokens.
const TicketPrefix = "INV-"

// Participant is one person registered for one event. The same person
// attending two events is two participants.
type Participant struct {
	ID             string            `firestore:"-" json:"id"`
	EventID        string            `firestore:"eventId" json:"eventId"`
	Name           string            `firestore:"name" json:"name"`
	Email          string            `firestore:"email" json:"email"`
	RollNo         string            `firestore:"rollNo" json:"rollNo"`
	Department     string            `firestore:"department" json:"department"`
	College        string            `firestore:"college" json:"college"`
	Phone          string            `firestore:"phone" json:"phone"`
	Year           string            `firestore:"year" json:"year"`
	FoodPreference string            `firestore:"foodPreference" json:"foodPreference"`
	RoomNo         string            `firestore:"roomNo" json:"roomNo"`
	TicketID       string            `firestore:"ticketId" json:"ticketId"`
	Token          string            `firestore:"token" json:"-"`
	Status         string            `firestore:"status" json:"status"`
	TokenUsage     map[string]bool   `firestore:"tokenUsage" json:"tokenUsage"`
	OtherDetails   map[string]string `firestore:"otherDetails" json:"-"`

	CheckInBreakfast *time.Time `firestore:"checkIn_breakfast,omitempty" json:"checkIn_breakfast,omitempty"`
	CheckInLunch     *time.Time `firestore:"checkIn_lunch,omitempty" json:"checkIn_lunch,omitempty"`
	CheckInSnacks    *time.Time `firestore:"checkIn_snacks,omitempty" json:"checkIn_snacks,omitempty"`
	CheckInDinner    *time.Time `firestore:"checkIn_dinner,omitempty" json:"checkIn_dinner,omitempty"`
	CheckInIcecream  *time.Time `firestore:"checkIn_icecream,omitempty" json:"checkIn_icecream,omitempty"`
}

// NewTokenUsage returns the all-false usage map a participant starts with.
func NewTokenUsage() map[string]bool {
	usage := make(map[string]bool, len(MealSlots))
	for _, m := range MealSlots {
		usage[m] = false
	}
	return usage
}

// Used reports whether the given meal slot has been redeemed.
func (p *Participant) Used(meal string) bool {
	return p.TokenUsage[meal]
}

// CheckInAt returns the check-in timestamp for the given meal, or nil if
// the meal has not been redeemed.
func (p *Participant) CheckInAt(meal string) *time.Time {
	switch meal {
	case MealBreakfast:
		return p.CheckInBreakfast
	case MealLunch:
		return p.CheckInLunch
	case MealSnacks:
		return p.CheckInSnacks
	case MealDinner:
		return p.CheckInDinner
	case MealIcecream:
		return p.CheckInIcecream
	}
	return nil
}

// SetCheckIn records the check-in timestamp for the given meal.
func (p *Participant) SetCheckIn(meal string, t time.Time) {
	switch meal {
	case MealBreakfast:
		p.CheckInBreakfast = &t
	case MealLunch:
		p.CheckInLunch = &t
	case MealSnacks:
		p.CheckInSnacks = &t
	case MealDinner:
		p.CheckInDinner = &t
	case MealIcecream:
		p.CheckInIcecream = &t
	}
}

// IsVeg classifies the free-text food preference: veg when it mentions
// "veg" without "non".
func (p *Participant) IsVeg() bool {
	pref := strings.ToLower(p.FoodPreference)
	return strings.Contains(pref, "veg") && !strings.Contains(pref, "non")
}

// Clone returns a deep copy of the participant.
func (p *Participant) Clone() *Participant {
	c := *p
	c.TokenUsage = make(map[string]bool, len(p.TokenUsage))
	for k, v := range p.TokenUsage {
		c.TokenUsage[k] = v
	}
	if p.OtherDetails != nil {
		c.OtherDetails = make(map[string]string, len(p.OtherDetails))
		for k, v := range p.OtherDetails {
			c.OtherDetails[k] = v
		}
	}
	for _, m := range MealSlots {
		if t := p.CheckInAt(m); t != nil {
			c.SetCheckIn(m, *t)
		}
	}
	return &c
}
