package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mealscan/model"
	"mealscan/repo"
)

type fakeRenderer struct{}

func (fakeRenderer) RenderCoupon(p *model.Participant, ev *model.Event, meals []string) ([]byte, error) {
	return []byte("%PDF " + p.TicketID), nil
}

type fakeTransport struct {
	sent   []string
	failTo map[string]bool
}

func (f *fakeTransport) Send(ctx context.Context, to, subject, html string, attachment []byte, filename string) error {
	if f.failTo[to] {
		return errors.New("smtp gateway sad")
	}
	f.sent = append(f.sent, to)
	return nil
}

func seedEventWithPending(t *testing.T, store *repo.MemoryStore, n int) *model.Event {
	t.Helper()
	ctx := context.Background()
	ev := &model.Event{Name: "Hostel Day", Date: time.Now(), SyncSubType: model.SyncHostelDay}
	if _, err := store.CreateEvent(ctx, ev); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	for i := 0; i < n; i++ {
		p := &model.Participant{
			EventID:    ev.ID,
			Name:       "P",
			Email:      string(rune('a'+i)) + "@example.com",
			RollNo:     "24CS00" + string(rune('0'+i)),
			TicketID:   "INV-000001-" + string(rune('0'+i)),
			Token:      "t" + string(rune('0'+i)),
			Status:     model.StatusGenerated,
			TokenUsage: model.NewTokenUsage(),
		}
		if _, err := store.Create(ctx, p); err != nil {
			t.Fatalf("seed participant: %v", err)
		}
	}
	return ev
}

func TestRunProcessesOneBoundedBatch(t *testing.T) {
	store := repo.NewMemoryStore()
	ev := seedEventWithPending(t, store, 5)
	transport := &fakeTransport{}
	d := NewDispatcher(store.Stores(), fakeRenderer{}, transport, 2)

	var records []Progress
	final, err := d.Run(context.Background(), ev.ID, "", func(p Progress) {
		records = append(records, p)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if final.Processed != 2 || final.Success != 2 || final.Failed != 0 {
		t.Fatalf("final = %+v, want two processed", final)
	}
	if !final.HasMore {
		t.Fatal("hasMore = false with three participants left")
	}
	if records[0].Status != "started" || records[0].Total != 5 {
		t.Fatalf("first record = %+v, want started with total 5", records[0])
	}
	if records[len(records)-1].Status != "completed" {
		t.Fatalf("last record = %+v, want completed", records[len(records)-1])
	}

	remaining, _ := store.CountPending(context.Background(), ev.ID, "")
	if remaining != 3 {
		t.Fatalf("remaining pending = %d, want 3", remaining)
	}
}

func TestRunDrainsAcrossInvocations(t *testing.T) {
	store := repo.NewMemoryStore()
	ev := seedEventWithPending(t, store, 5)
	transport := &fakeTransport{}
	d := NewDispatcher(store.Stores(), fakeRenderer{}, transport, 2)

	invocations := 0
	for {
		invocations++
		final, err := d.Run(context.Background(), ev.ID, "", nil)
		if err != nil {
			t.Fatalf("run %d: %v", invocations, err)
		}
		if !final.HasMore {
			break
		}
		if invocations > 10 {
			t.Fatal("dispatcher never drained")
		}
	}
	if invocations != 3 {
		t.Fatalf("invocations = %d, want 3 (2+2+1)", invocations)
	}
	if len(transport.sent) != 5 {
		t.Fatalf("sent = %d, want all 5", len(transport.sent))
	}
}

func TestRunFailedDeliveryStaysPending(t *testing.T) {
	store := repo.NewMemoryStore()
	ev := seedEventWithPending(t, store, 3)
	transport := &fakeTransport{failTo: map[string]bool{"b@example.com": true}}
	d := NewDispatcher(store.Stores(), fakeRenderer{}, transport, 10)

	final, err := d.Run(context.Background(), ev.ID, "", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if final.Success != 2 || final.Failed != 1 {
		t.Fatalf("final = %+v, want 2 success 1 failed", final)
	}
	if !final.HasMore {
		t.Fatal("hasMore = false while a failed participant is still pending")
	}

	pending, _ := store.ListPending(context.Background(), ev.ID, "", 0)
	if len(pending) != 1 || pending[0].Email != "b@example.com" {
		t.Fatalf("pending = %v, want only the failed delivery", pending)
	}
	if pending[0].Status != model.StatusGenerated {
		t.Fatalf("failed participant status = %q, want generated for retry", pending[0].Status)
	}
}

func TestRunRollNoFilter(t *testing.T) {
	store := repo.NewMemoryStore()
	ev := seedEventWithPending(t, store, 3)
	transport := &fakeTransport{}
	d := NewDispatcher(store.Stores(), fakeRenderer{}, transport, 10)

	final, err := d.Run(context.Background(), ev.ID, "24CS001", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if final.Processed != 1 || final.Total != 1 {
		t.Fatalf("final = %+v, want the single matching roll", final)
	}
}

func TestRunUnknownEvent(t *testing.T) {
	store := repo.NewMemoryStore()
	d := NewDispatcher(store.Stores(), fakeRenderer{}, &fakeTransport{}, 10)

	final, err := d.Run(context.Background(), "nope", "", nil)
	if !errors.Is(err, model.ErrEventNotFound) {
		t.Fatalf("err = %v, want ErrEventNotFound", err)
	}
	if final.Status != "error" {
		t.Fatalf("final = %+v, want error record", final)
	}
}

func TestCouponRendererProducesPDF(t *testing.T) {
	r := NewCouponRenderer()
	p := &model.Participant{
		Name:           "Asha",
		RollNo:         "24CS001",
		TicketID:       "INV-000123-4",
		FoodPreference: "Veg",
	}
	ev := &model.Event{Name: "Hostel Day", Date: time.Now(), Venue: "Mess Hall"}

	out, err := r.RenderCoupon(p, ev, model.MealSlots)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(string(out), "%PDF") {
		t.Fatalf("output does not look like a PDF: %q", string(out[:8]))
	}
}
