package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"mealscan/model"
	"mealscan/repo"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func newTestEngine(store repo.ParticipantStore) *Engine {
	e := NewEngine(store, 10)
	e.tickets = NewTicketIssuer(fixedClock)
	seq := 0
	e.randToken = func() string {
		seq++
		return "rnd" + strings.Repeat("x", seq)
	}
	return e
}

func rosterRows() *Rows {
	return &Rows{
		Headers: []string{"Name", "Roll No", "Email", "Food Preference", "Department"},
		Records: [][]string{
			{"Asha", "24cs001", "Asha@Example.com", "Veg", "CSE"},
			{"Ravi", "24EC045", "ravi@example.com", "Non-Veg", "ECE"},
		},
	}
}

func TestImportNormalizesAndIssuesTickets(t *testing.T) {
	store := repo.NewMemoryStore()
	e := newTestEngine(store)

	report, err := e.Import(context.Background(), "ev1", rosterRows())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Imported != 2 || report.Skipped != 0 || report.TotalRows != 2 {
		t.Fatalf("report = %+v, want 2 imported, 0 skipped, 2 rows", report)
	}

	ps, err := store.ListByEvent(context.Background(), "ev1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("got %d participants, want 2", len(ps))
	}

	first := ps[0]
	if first.RollNo != "24CS001" {
		t.Errorf("roll = %q, want normalized 24CS001", first.RollNo)
	}
	if first.Email != "asha@example.com" {
		t.Errorf("email = %q, want lowercased", first.Email)
	}
	if !strings.HasPrefix(first.TicketID, model.TicketPrefix) {
		t.Errorf("ticket %q missing %q prefix", first.TicketID, model.TicketPrefix)
	}
	if first.Token != "24CS001" {
		t.Errorf("token = %q, want the roll number", first.Token)
	}
	if first.Status != model.StatusGenerated {
		t.Errorf("status = %q, want generated", first.Status)
	}
	for _, meal := range model.MealSlots {
		if first.TokenUsage[meal] {
			t.Errorf("tokenUsage[%s] = true at creation", meal)
		}
	}
	if first.OtherDetails["Food Preference"] != "Veg" {
		t.Errorf("otherDetails missing original column: %v", first.OtherDetails)
	}

	if ps[0].TicketID == ps[1].TicketID {
		t.Errorf("duplicate ticket ids issued: %s", ps[0].TicketID)
	}
}

func TestImportSecondSyncIsIdempotent(t *testing.T) {
	store := repo.NewMemoryStore()
	e := newTestEngine(store)
	ctx := context.Background()

	if _, err := e.Import(ctx, "ev1", rosterRows()); err != nil {
		t.Fatalf("first import: %v", err)
	}
	report, err := e.Import(ctx, "ev1", rosterRows())
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if report.Imported != 0 || report.Skipped != 2 {
		t.Fatalf("second sync report = %+v, want all skipped", report)
	}

	ps, _ := store.ListByEvent(ctx, "ev1")
	if len(ps) != 2 {
		t.Fatalf("got %d participants after resync, want 2", len(ps))
	}
}

func TestImportIntraBatchDuplicate(t *testing.T) {
	store := repo.NewMemoryStore()
	e := newTestEngine(store)

	rows := &Rows{
		Headers: []string{"Name", "Roll No", "Email"},
		Records: [][]string{
			{"Asha", "24CS001", "asha@example.com"},
			{"Asha Again", "24cs001", "asha2@example.com"},
			{"Other", "", "ASHA@example.com"},
		},
	}
	report, err := e.Import(context.Background(), "ev1", rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Imported != 1 || report.Skipped != 2 {
		t.Fatalf("report = %+v, want 1 imported, 2 skipped", report)
	}
}

func TestImportMultiEmailRow(t *testing.T) {
	store := repo.NewMemoryStore()
	e := newTestEngine(store)

	rows := &Rows{
		Headers: []string{"Team Name", "Roll No", "Email 1", "Email 2"},
		Records: [][]string{
			{"Team Rocket", "24CS010", "lead@example.com", "member@example.com"},
		},
	}
	report, err := e.Import(context.Background(), "ev1", rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Imported != 2 {
		t.Fatalf("imported = %d, want one participant per email column", report.Imported)
	}

	ps, _ := store.ListByEvent(context.Background(), "ev1")
	if ps[0].RollNo != "24CS010" || ps[1].RollNo != "" {
		t.Errorf("roll assignment: first=%q second=%q, want roll on first only", ps[0].RollNo, ps[1].RollNo)
	}
	if ps[1].Token == "" || ps[1].Token == ps[1].RollNo {
		t.Errorf("second participant token = %q, want random fallback", ps[1].Token)
	}
}

func TestImportEmailFallbackScansCells(t *testing.T) {
	store := repo.NewMemoryStore()
	e := newTestEngine(store)

	// No header contains "email"; the address hides in an unnamed column.
	rows := &Rows{
		Headers: []string{"Name", "Column B", "Column C"},
		Records: [][]string{
			{"Asha", "something", "asha@example.com"},
		},
	}
	report, err := e.Import(context.Background(), "ev1", rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Imported != 1 {
		t.Fatalf("imported = %d, want 1 via @ fallback", report.Imported)
	}
	ps, _ := store.ListByEvent(context.Background(), "ev1")
	if ps[0].Email != "asha@example.com" {
		t.Errorf("email = %q, want the scanned cell", ps[0].Email)
	}
}

func TestImportNamelessRowBecomesUnknown(t *testing.T) {
	store := repo.NewMemoryStore()
	e := newTestEngine(store)

	rows := &Rows{
		Headers: []string{"Roll No", "Email"},
		Records: [][]string{
			{"24CS001", "someone@example.com"},
		},
	}
	report, err := e.Import(context.Background(), "ev1", rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.Unnamed != 1 {
		t.Fatalf("unnamed = %d, want 1", report.Unnamed)
	}
	ps, _ := store.ListByEvent(context.Background(), "ev1")
	if ps[0].Name != "Unknown" {
		t.Errorf("name = %q, want Unknown", ps[0].Name)
	}
}

func TestImportEmptyHeadersIsMalformed(t *testing.T) {
	e := newTestEngine(repo.NewMemoryStore())
	if _, err := e.Import(context.Background(), "ev1", &Rows{}); err != model.ErrMalformedSheet {
		t.Fatalf("err = %v, want ErrMalformedSheet", err)
	}
}

func TestParseCSV(t *testing.T) {
	input := "Name,Roll No,Email\nAsha,24cs001,asha@example.com\nRavi,24EC045,ravi@example.com\n"
	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows.Headers) != 3 || len(rows.Records) != 2 {
		t.Fatalf("got %d headers, %d records", len(rows.Headers), len(rows.Records))
	}

	if _, err := ParseCSV(strings.NewReader("")); err != model.ErrMalformedSheet {
		t.Fatalf("empty csv err = %v, want ErrMalformedSheet", err)
	}
}

func TestTicketIssuerAvoidsTakenIDs(t *testing.T) {
	issuer := NewTicketIssuer(fixedClock)
	taken := make(map[string]struct{})

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := issuer.Next(taken)
		if !strings.HasPrefix(id, model.TicketPrefix) {
			t.Fatalf("ticket %q missing prefix", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("ticket %q issued twice", id)
		}
		seen[id] = struct{}{}
	}
}

func TestBackfillRollNumbers(t *testing.T) {
	store := repo.NewMemoryStore()
	ctx := context.Background()

	// Imported before the roll field existed: roll lives only in the
	// preserved columns.
	_, err := store.Create(ctx, &model.Participant{
		EventID:      "ev1",
		Name:         "Asha",
		Email:        "asha@example.com",
		TicketID:     "INV-000001-1",
		Token:        "legacy",
		Status:       model.StatusGenerated,
		TokenUsage:   model.NewTokenUsage(),
		OtherDetails: map[string]string{"Roll No": "24ec045", "Food": "Veg"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = store.Create(ctx, &model.Participant{
		EventID:      "ev1",
		Name:         "Ravi",
		RollNo:       "24CS001",
		TicketID:     "INV-000001-2",
		Token:        "24CS001",
		Status:       model.StatusGenerated,
		TokenUsage:   model.NewTokenUsage(),
		OtherDetails: map[string]string{"Roll No": "ignored"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	e := newTestEngine(store)
	updated, err := e.BackfillRollNumbers(ctx, "ev1")
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated = %d, want 1", updated)
	}

	ps, _ := store.ListByEvent(ctx, "ev1")
	if ps[0].RollNo != "24EC045" {
		t.Errorf("backfilled roll = %q, want normalized 24EC045", ps[0].RollNo)
	}
	if ps[0].Token != "24EC045" {
		t.Errorf("token = %q, want it to follow the backfilled roll", ps[0].Token)
	}
	if ps[1].RollNo != "24CS001" {
		t.Errorf("existing roll changed to %q", ps[1].RollNo)
	}
}
