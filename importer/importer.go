package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mealscan/model"
	"mealscan/repo"
)

// Rows is a parsed roster: one header row plus data rows, as produced by
// the CSV parser or a sheet fetch.
type Rows struct {
	Headers []string
	Records [][]string
}

// Report summarizes one import run. When the run errors mid-way,
// Imported still reflects the batches already committed.
type Report struct {
	Imported  int `json:"imported"`
	Skipped   int `json:"skipped"`
	Unnamed   int `json:"unnamed"`
	TotalRows int `json:"totalRows"`
}

// Engine imports roster rows for an event without creating duplicates.
type Engine struct {
	participants repo.ParticipantStore
	batchSize    int
	rules        []HeaderRule
	tickets      *TicketIssuer
	randToken    func() string
}

// NewEngine constructs an import engine writing batches of batchSize.
func NewEngine(participants repo.ParticipantStore, batchSize int) *Engine {
	return &Engine{
		participants: participants,
		batchSize:    batchSize,
		rules:        DefaultRules,
		tickets:      NewTicketIssuer(time.Now),
		randToken: func() string {
			return strings.SplitN(uuid.New().String(), "-", 2)[0]
		},
	}
}

// candidate is one would-be participant extracted from a row. A row with
// several email columns yields several candidates.
type candidate struct {
	name   string
	email  string
	rollNo string
	fields map[string]string
	other  map[string]string
}

// Import ingests the rows for an event. Duplicate candidates, judged by
// normalized roll number or email against both the stored roster and the
// rows already accepted in this run, are skipped silently.
func (e *Engine) Import(ctx context.Context, eventID string, rows *Rows) (*Report, error) {
	if rows == nil || len(rows.Headers) == 0 {
		return nil, model.ErrMalformedSheet
	}

	existing, err := e.participants.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("error loading existing roster: %w", err)
	}
	rolls := make(map[string]struct{})
	emails := make(map[string]struct{})
	tickets := make(map[string]struct{})
	for _, p := range existing {
		if p.RollNo != "" {
			rolls[p.RollNo] = struct{}{}
		}
		if p.Email != "" {
			emails[p.Email] = struct{}{}
		}
		tickets[p.TicketID] = struct{}{}
	}

	cm := MapColumns(rows.Headers, e.rules)
	bw := repo.NewBatchWriter(e.participants, e.batchSize)
	report := &Report{TotalRows: len(rows.Records)}

	finish := func(runErr error) (*Report, error) {
		written, _ := bw.Report()
		report.Imported = written
		log.Info().
			Str("eventId", eventID).
			Int("imported", report.Imported).
			Int("skipped", report.Skipped).
			Int("totalRows", report.TotalRows).
			Err(runErr).
			Msg("roster import finished")
		return report, runErr
	}

	for _, record := range rows.Records {
		for _, c := range extractCandidates(rows.Headers, record, cm) {
			if c.rollNo != "" {
				if _, dup := rolls[c.rollNo]; dup {
					report.Skipped++
					continue
				}
			}
			if c.email != "" {
				if _, dup := emails[c.email]; dup {
					report.Skipped++
					continue
				}
			}
			if c.rollNo == "" && c.email == "" {
				// Nothing to dedup or scan by; drop the candidate.
				report.Skipped++
				continue
			}

			if c.rollNo != "" {
				rolls[c.rollNo] = struct{}{}
			}
			if c.email != "" {
				emails[c.email] = struct{}{}
			}

			name := c.name
			if name == "" {
				name = "Unknown"
				report.Unnamed++
			}
			token := c.rollNo
			if token == "" {
				token = e.randToken()
			}

			p := &model.Participant{
				EventID:        eventID,
				Name:           name,
				Email:          c.email,
				RollNo:         c.rollNo,
				Department:     c.fields[FieldDepartment],
				College:        c.fields[FieldCollege],
				Phone:          c.fields[FieldPhone],
				Year:           c.fields[FieldYear],
				FoodPreference: c.fields[FieldFood],
				RoomNo:         c.fields[FieldRoom],
				TicketID:       e.tickets.Next(tickets),
				Token:          token,
				Status:         model.StatusGenerated,
				TokenUsage:     model.NewTokenUsage(),
				OtherDetails:   c.other,
			}
			if err := bw.Add(ctx, p); err != nil {
				return finish(fmt.Errorf("error writing participant batch: %w", err))
			}
		}
	}

	if err := bw.Flush(ctx); err != nil {
		return finish(fmt.Errorf("error flushing participant batch: %w", err))
	}
	return finish(nil)
}

// extractCandidates pulls every candidate participant out of one row.
// Each mapped email column with an addressable value yields a candidate;
// the roll number belongs to the first one only. Rows without any mapped
// email column fall back to scanning cells for an "@".
func extractCandidates(headers, record []string, cm ColumnMap) []candidate {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	shared := map[string]string{
		FieldDepartment: cell(cm.First(FieldDepartment)),
		FieldCollege:    cell(cm.First(FieldCollege)),
		FieldPhone:      cell(cm.First(FieldPhone)),
		FieldYear:       cell(cm.First(FieldYear)),
		FieldFood:       cell(cm.First(FieldFood)),
		FieldRoom:       cell(cm.First(FieldRoom)),
	}
	other := make(map[string]string, len(headers))
	for i, h := range headers {
		if v := cell(i); v != "" {
			other[h] = v
		}
	}
	name := cell(cm.First(FieldName))
	roll := normalizeRoll(cell(cm.First(FieldRollNo)))

	var addrs []string
	if cols, ok := cm[FieldEmail]; ok {
		for _, i := range cols {
			if v := cell(i); strings.Contains(v, "@") {
				addrs = append(addrs, normalizeEmail(v))
			}
		}
	} else {
		for i := range record {
			if v := cell(i); strings.Contains(v, "@") {
				addrs = append(addrs, normalizeEmail(v))
				break
			}
		}
	}

	if len(addrs) == 0 {
		return []candidate{{name: name, rollNo: roll, fields: shared, other: other}}
	}
	out := make([]candidate, 0, len(addrs))
	for i, addr := range addrs {
		c := candidate{name: name, email: addr, fields: shared, other: other}
		if i == 0 {
			c.rollNo = roll
		}
		out = append(out, c)
	}
	return out
}

func normalizeRoll(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// BackfillRollNumbers populates missing roll numbers by scanning each
// participant's preserved import columns with the roll header rule. One
// shot, for records imported before the field existed.
func (e *Engine) BackfillRollNumbers(ctx context.Context, eventID string) (int, error) {
	var rollRule *HeaderRule
	for i := range e.rules {
		if e.rules[i].Field == FieldRollNo {
			rollRule = &e.rules[i]
			break
		}
	}
	if rollRule == nil {
		return 0, fmt.Errorf("no roll number rule configured")
	}

	ps, err := e.participants.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("error loading roster: %w", err)
	}

	updated := 0
	for _, p := range ps {
		if p.RollNo != "" {
			continue
		}
		for key, value := range p.OtherDetails {
			if !rollRule.Matches(key) {
				continue
			}
			roll := normalizeRoll(value)
			if roll == "" {
				continue
			}
			if err := e.participants.SetRollNo(ctx, p.ID, roll); err != nil {
				return updated, fmt.Errorf("error backfilling roll number for %s: %w", p.ID, err)
			}
			updated++
			break
		}
	}
	return updated, nil
}
