package model

// Scan verdict statuses returned by the verification engine.
const (
	ScanVerified = "verified"
	ScanUsed     = "used"
	ScanEligible = "eligible"
	ScanInvalid  = "invalid"
	ScanError    = "error"
)

// ParticipantSummary is the card the scanning station renders for every
// verdict, regardless of outcome.
type ParticipantSummary struct {
	Name           string  `json:"name"`
	FoodPreference string  `json:"foodPreference"`
	RoomNo         string  `json:"roomNo"`
	RollNo         string  `json:"rollNo"`
	College        string  `json:"college"`
	TicketID       string  `json:"ticketId"`
	PhotoURL       *string `json:"photoUrl"`
}

// ScanDetails carries the resolved slot for the scan.
type ScanDetails struct {
	MealType string `json:"mealType"`
}

// ScanResult is the structured verdict for one scan.
type ScanResult struct {
	Valid       bool                `json:"valid"`
	Status      string              `json:"status"`
	Message     string              `json:"message"`
	Participant *ParticipantSummary `json:"participant,omitempty"`
	ScanDetails *ScanDetails        `json:"scanDetails,omitempty"`
}

// Summary builds the verdict card for a participant.
func (p *Participant) Summary(photoURL *string) *ParticipantSummary {
	return &ParticipantSummary{
		Name:           p.Name,
		FoodPreference: p.FoodPreference,
		RoomNo:         p.RoomNo,
		RollNo:         p.RollNo,
		College:        p.College,
		TicketID:       p.TicketID,
		PhotoURL:       photoURL,
	}
}
