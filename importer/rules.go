// Package importer ingests roster rows from uploaded CSV files or a
// synced Google Sheet, deduplicates them against the event's existing
// participants and issues tickets for the new ones.
package importer

import "strings"

// Target fields a column can map to.
const (
	FieldName       = "name"
	FieldEmail      = "email"
	FieldRollNo     = "rollNo"
	FieldDepartment = "department"
	FieldCollege    = "college"
	FieldPhone      = "phone"
	FieldYear       = "year"
	FieldFood       = "foodPreference"
	FieldRoom       = "roomNo"
)

// HeaderRule maps column headers to a target field. A header matches
// when it contains any AnyOf substring and none of the NoneOf
// substrings, compared case-insensitively.
type HeaderRule struct {
	Field  string
	AnyOf  []string
	NoneOf []string
}

// Matches reports whether the lowercased header satisfies the rule.
func (r HeaderRule) Matches(header string) bool {
	h := strings.ToLower(header)
	any := false
	for _, s := range r.AnyOf {
		if strings.Contains(h, s) {
			any = true
			break
		}
	}
	if !any {
		return false
	}
	for _, s := range r.NoneOf {
		if strings.Contains(h, s) {
			return false
		}
	}
	return true
}

// DefaultRules is the ordered rule table; the first matching rule claims
// a header. The roll rule comes first so "Food Preference (Veg)" style
// headers fall through to the food rule.
var DefaultRules = []HeaderRule{
	{Field: FieldRollNo, AnyOf: []string{"roll"}, NoneOf: []string{"veg", "food", "preference", "diet", "meal"}},
	{Field: FieldEmail, AnyOf: []string{"email"}},
	{Field: FieldFood, AnyOf: []string{"food", "veg", "diet", "preference"}},
	{Field: FieldName, AnyOf: []string{"name"}, NoneOf: []string{"event", "college", "sheet", "father", "mother"}},
	{Field: FieldPhone, AnyOf: []string{"phone", "mobile", "contact", "whatsapp"}},
	{Field: FieldDepartment, AnyOf: []string{"department", "dept", "branch"}},
	{Field: FieldCollege, AnyOf: []string{"college", "institute"}},
	{Field: FieldYear, AnyOf: []string{"year"}},
	{Field: FieldRoom, AnyOf: []string{"room"}},
}

// ColumnMap records which column indexes feed each target field. Email
// may map to several columns (multi-participant rows).
type ColumnMap map[string][]int

// MapColumns evaluates the rule table once against the header row,
// producing the column mapping reused for every data row.
func MapColumns(headers []string, rules []HeaderRule) ColumnMap {
	cm := make(ColumnMap)
	for i, h := range headers {
		for _, r := range rules {
			if r.Matches(h) {
				cm[r.Field] = append(cm[r.Field], i)
				break
			}
		}
	}
	return cm
}

// First returns the first mapped column for a field, or -1.
func (cm ColumnMap) First(field string) int {
	if cols := cm[field]; len(cols) > 0 {
		return cols[0]
	}
	return -1
}
