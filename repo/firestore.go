package repo

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mealscan/model"
)

const (
	eventsCollection       = "events"
	participantsCollection = "participants"
	statsCollection        = "liveStats"
)

// FirestoreStore implements the store interfaces on Cloud Firestore.
type FirestoreStore struct {
	app    *firebase.App
	client *firestore.Client
}

// NewFirestoreStore initializes the Firebase app from a service account
// key file and returns a Firestore-backed store.
func NewFirestoreStore(ctx context.Context, serviceAccountKeyPath, projectID string) (*FirestoreStore, error) {
	opt := option.WithCredentialsFile(serviceAccountKeyPath)

	config := &firebase.Config{
		ProjectID: projectID,
	}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firestore client: %w", err)
	}

	return &FirestoreStore{
		app:    app,
		client: client,
	}, nil
}

// Stores returns the capability bundle backed by this store.
func (fs *FirestoreStore) Stores() Stores {
	return Stores{Participants: fs, Events: fs, Stats: fs}
}

// Close releases the underlying Firestore client.
func (fs *FirestoreStore) Close() error {
	return fs.client.Close()
}

// ------------------- Events -------------------

// CreateEvent creates a new event and returns its document id.
func (fs *FirestoreStore) CreateEvent(ctx context.Context, ev *model.Event) (string, error) {
	ref := fs.client.Collection(eventsCollection).NewDoc()
	if _, err := ref.Set(ctx, ev); err != nil {
		return "", fmt.Errorf("error creating event: %w", err)
	}
	ev.ID = ref.ID
	return ref.ID, nil
}

// GetEvent reads an event by its document id.
func (fs *FirestoreStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	snap, err := fs.client.Collection(eventsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("error reading event: %w", err)
	}
	var ev model.Event
	if err := snap.DataTo(&ev); err != nil {
		return nil, fmt.Errorf("error decoding event: %w", err)
	}
	ev.ID = snap.Ref.ID
	return &ev, nil
}

// ------------------- Participants -------------------

// Create persists a new participant and returns its document id.
func (fs *FirestoreStore) Create(ctx context.Context, p *model.Participant) (string, error) {
	ref := fs.client.Collection(participantsCollection).NewDoc()
	if _, err := ref.Set(ctx, p); err != nil {
		return "", fmt.Errorf("error creating participant: %w", err)
	}
	p.ID = ref.ID
	return ref.ID, nil
}

// CreateBatch persists the given participants in a single write batch.
// Callers keep batches under the Firestore 500-write ceiling; the
// BatchWriter handles that.
func (fs *FirestoreStore) CreateBatch(ctx context.Context, ps []*model.Participant) (int, error) {
	if len(ps) == 0 {
		return 0, nil
	}
	batch := fs.client.Batch()
	for _, p := range ps {
		ref := fs.client.Collection(participantsCollection).NewDoc()
		p.ID = ref.ID
		batch.Set(ref, p)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return 0, fmt.Errorf("error committing participant batch: %w", err)
	}
	return len(ps), nil
}

// Get reads a participant by document id.
func (fs *FirestoreStore) Get(ctx context.Context, id string) (*model.Participant, error) {
	snap, err := fs.client.Collection(participantsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("error reading participant: %w", err)
	}
	return participantFromSnap(snap)
}

// GetByTicketID resolves a participant by ticket id.
func (fs *FirestoreStore) GetByTicketID(ctx context.Context, ticketID string) (*model.Participant, error) {
	return fs.getOneWhere(ctx, "ticketId", ticketID)
}

// GetByToken resolves a participant by legacy token.
func (fs *FirestoreStore) GetByToken(ctx context.Context, token string) (*model.Participant, error) {
	return fs.getOneWhere(ctx, "token", token)
}

func (fs *FirestoreStore) getOneWhere(ctx context.Context, field, value string) (*model.Participant, error) {
	iter := fs.client.Collection(participantsCollection).
		Where(field, "==", value).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying participant by %s: %w", field, err)
	}
	return participantFromSnap(snap)
}

// ListByEvent returns every participant of an event.
func (fs *FirestoreStore) ListByEvent(ctx context.Context, eventID string) ([]*model.Participant, error) {
	iter := fs.client.Collection(participantsCollection).
		Where("eventId", "==", eventID).
		Documents(ctx)
	defer iter.Stop()

	var out []*model.Participant
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing participants: %w", err)
		}
		p, err := participantFromSnap(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ListPending returns up to limit participants still awaiting their
// coupon email.
func (fs *FirestoreStore) ListPending(ctx context.Context, eventID, rollNo string, limit int) ([]*model.Participant, error) {
	q := fs.pendingQuery(eventID, rollNo)
	if limit > 0 {
		q = q.Limit(limit)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*model.Participant
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing pending participants: %w", err)
		}
		p, err := participantFromSnap(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// CountPending counts participants still awaiting their coupon email.
func (fs *FirestoreStore) CountPending(ctx context.Context, eventID, rollNo string) (int, error) {
	iter := fs.pendingQuery(eventID, rollNo).Select().Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("error counting pending participants: %w", err)
		}
		count++
	}
	return count, nil
}

func (fs *FirestoreStore) pendingQuery(eventID, rollNo string) firestore.Query {
	q := fs.client.Collection(participantsCollection).
		Where("eventId", "==", eventID).
		Where("status", "==", model.StatusGenerated)
	if rollNo != "" {
		q = q.Where("rollNo", "==", rollNo)
	}
	return q
}

// SetStatus transitions the coupon-delivery status of a participant.
func (fs *FirestoreStore) SetStatus(ctx context.Context, id, status string) error {
	ref := fs.client.Collection(participantsCollection).Doc(id)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "status", Value: status},
	})
	if err != nil {
		return fmt.Errorf("error updating participant status: %w", err)
	}
	return nil
}

// SetRollNo backfills the roll number of a participant. The legacy
// token follows the roll number so roll-based scan payloads resolve.
func (fs *FirestoreStore) SetRollNo(ctx context.Context, id, rollNo string) error {
	ref := fs.client.Collection(participantsCollection).Doc(id)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "rollNo", Value: rollNo},
		{Path: "token", Value: rollNo},
	})
	if err != nil {
		return fmt.Errorf("error updating participant roll number: %w", err)
	}
	return nil
}

// Redeem marks a meal slot used inside a transaction. The usage flag is
// re-read inside the transaction, so of two concurrent scans exactly one
// observes the unredeemed state and commits; the other reports already.
func (fs *FirestoreStore) Redeem(ctx context.Context, id, meal string, at time.Time) (bool, error) {
	ref := fs.client.Collection(participantsCollection).Doc(id)
	already := false
	err := fs.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		p, err := participantFromSnap(snap)
		if err != nil {
			return err
		}
		if p.Used(meal) {
			already = true
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "tokenUsage." + meal, Value: true},
			{Path: "checkIn_" + meal, Value: at},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, model.ErrNotFound
		}
		return false, fmt.Errorf("error redeeming meal %s: %w", meal, err)
	}
	return already, nil
}

func participantFromSnap(snap *firestore.DocumentSnapshot) (*model.Participant, error) {
	var p model.Participant
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("error decoding participant: %w", err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

// ------------------- Live stats -------------------

// Increment bumps the cached counters for one redemption. Runs outside
// the redemption transaction: the counters are a rebuildable cache.
func (fs *FirestoreStore) Increment(ctx context.Context, eventID, meal string, veg bool) error {
	bucket := "nonveg"
	if veg {
		bucket = "veg"
	}
	ref := fs.client.Collection(statsCollection).Doc(eventID)
	_, err := ref.Set(ctx, map[string]interface{}{
		meal: map[string]interface{}{
			"total": firestore.Increment(1),
			bucket:  firestore.Increment(1),
		},
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("error incrementing live stats: %w", err)
	}
	return nil
}

// GetStats returns the cached counter table for an event. A missing
// stats document yields a zeroed table.
func (fs *FirestoreStore) GetStats(ctx context.Context, eventID string) (model.LiveStats, error) {
	snap, err := fs.client.Collection(statsCollection).Doc(eventID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.NewLiveStats(), nil
		}
		return nil, fmt.Errorf("error reading live stats: %w", err)
	}
	stats := model.NewLiveStats()
	if err := snap.DataTo(&stats); err != nil {
		return nil, fmt.Errorf("error decoding live stats: %w", err)
	}
	return stats, nil
}

// ReplaceStats overwrites the cached counters with a recomputed table.
func (fs *FirestoreStore) ReplaceStats(ctx context.Context, eventID string, stats model.LiveStats) error {
	ref := fs.client.Collection(statsCollection).Doc(eventID)
	if _, err := ref.Set(ctx, stats); err != nil {
		return fmt.Errorf("error replacing live stats: %w", err)
	}
	return nil
}
