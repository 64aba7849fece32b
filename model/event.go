package model

import "time"

// Sheet-sync sub types. A hostel-day event issues coupons for all five
// meal slots; any other synced event issues a single custom meal.
const (
	SyncHostelDay = "hostel_day"
	SyncOther     = "other"
)

// Event is one managed happening with an imported roster.
type Event struct {
	ID            string    `firestore:"-" json:"id"`
	Name          string    `firestore:"name" json:"name"`
	Date          time.Time `firestore:"date" json:"date"`
	Venue         string    `firestore:"venue" json:"venue"`
	DriveFolderID string    `firestore:"driveFolderId,omitempty" json:"driveFolderId,omitempty"`

	// Optional live sheet-sync configuration.
	SheetID      string `firestore:"sheetId,omitempty" json:"sheetId,omitempty"`
	SheetName    string `firestore:"sheetName,omitempty" json:"sheetName,omitempty"`
	SyncSubType  string `firestore:"syncSubType,omitempty" json:"syncSubType,omitempty"`
	SyncMealName string `firestore:"syncMealName,omitempty" json:"syncMealName,omitempty"`
}

// Meals returns the meal slots this event's coupons cover.
func (e *Event) Meals() []string {
	if e.SyncSubType == SyncOther && e.SyncMealName != "" && IsMealSlot(e.SyncMealName) {
		return []string{e.SyncMealName}
	}
	return MealSlots
}
