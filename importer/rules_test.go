package importer

import (
	"reflect"
	"testing"
)

func TestMapColumnsFuzzyHeaders(t *testing.T) {
	headers := []string{
		"Timestamp",
		"Full Name",
		"Roll No",
		"Email Address",
		"Food Preference (Veg/Non-Veg)",
		"Department",
		"WhatsApp Number",
		"Room No",
	}
	cm := MapColumns(headers, DefaultRules)

	want := map[string]int{
		FieldName:       1,
		FieldRollNo:     2,
		FieldEmail:      3,
		FieldFood:       4,
		FieldDepartment: 5,
		FieldPhone:      6,
		FieldRoom:       7,
	}
	for field, col := range want {
		if got := cm.First(field); got != col {
			t.Errorf("field %s mapped to column %d, want %d", field, got, col)
		}
	}
}

func TestMapColumnsFoodHeaderIsNotRoll(t *testing.T) {
	// "Meal Preference" and "Food choice" must not be claimed by the
	// roll rule even though neither contains "roll"; and a header like
	// "Roll number for food coupon" containing a food word must fall
	// through the roll rule.
	cm := MapColumns([]string{"Roll number for meal coupon"}, DefaultRules)
	if cm.First(FieldRollNo) != -1 {
		t.Errorf("roll rule claimed a meal header: %v", cm)
	}

	cm = MapColumns([]string{"Roll Number"}, DefaultRules)
	if cm.First(FieldRollNo) != 0 {
		t.Errorf("roll rule missed a plain roll header: %v", cm)
	}
}

func TestMapColumnsMultipleEmailColumns(t *testing.T) {
	headers := []string{"Name", "Email 1", "Email 2", "Email 3"}
	cm := MapColumns(headers, DefaultRules)
	if got := cm[FieldEmail]; !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("email columns = %v, want [1 2 3]", got)
	}
}

func TestHeaderRuleCaseInsensitive(t *testing.T) {
	rule := HeaderRule{Field: FieldEmail, AnyOf: []string{"email"}}
	for _, h := range []string{"EMAIL", "Email ID", "college email"} {
		if !rule.Matches(h) {
			t.Errorf("rule did not match %q", h)
		}
	}
}
