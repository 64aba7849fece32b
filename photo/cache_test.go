package photo

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLister struct {
	files map[string]string
	calls int
	err   error
}

func (f *fakeLister) ListFolder(ctx context.Context, folderID string) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.files, nil
}

func newTestResolver(lister FolderLister, ttl time.Duration) (*Resolver, *time.Time) {
	r := NewResolver(lister, ttl)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestLookupMatchesRollInFilename(t *testing.T) {
	lister := &fakeLister{files: map[string]string{
		"24cs001_asha.jpg": "https://drive.example/asha",
		"24CS002.png":      "https://drive.example/ravi",
	}}
	r, _ := newTestResolver(lister, time.Minute)

	url, err := r.Lookup(context.Background(), "folder1", "24cs001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if url != "https://drive.example/asha" {
		t.Fatalf("url = %q", url)
	}

	url, err = r.Lookup(context.Background(), "folder1", "24CS999")
	if err != nil || url != "" {
		t.Fatalf("missing roll: url=%q err=%v", url, err)
	}

	if lister.calls != 1 {
		t.Fatalf("lister called %d times, want 1 (second lookup cached)", lister.calls)
	}
}

func TestLookupRefetchesAfterTTL(t *testing.T) {
	lister := &fakeLister{files: map[string]string{"24CS001.jpg": "u"}}
	r, now := newTestResolver(lister, time.Minute)
	ctx := context.Background()

	if _, err := r.Lookup(ctx, "folder1", "24CS001"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	*now = now.Add(30 * time.Second)
	_, _ = r.Lookup(ctx, "folder1", "24CS001")
	if lister.calls != 1 {
		t.Fatalf("fresh cache refetched (%d calls)", lister.calls)
	}

	*now = now.Add(2 * time.Minute)
	_, _ = r.Lookup(ctx, "folder1", "24CS001")
	if lister.calls != 2 {
		t.Fatalf("expired cache not refetched (%d calls)", lister.calls)
	}
}

func TestRefreshDropsCachedListing(t *testing.T) {
	lister := &fakeLister{files: map[string]string{"24CS001.jpg": "u"}}
	r, _ := newTestResolver(lister, time.Hour)
	ctx := context.Background()

	_, _ = r.Lookup(ctx, "folder1", "24CS001")
	if err := r.Refresh(ctx, "folder1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if lister.calls != 2 {
		t.Fatalf("refresh did not refetch (%d calls)", lister.calls)
	}
}

func TestLookupPropagatesListerError(t *testing.T) {
	lister := &fakeLister{err: errors.New("drive down")}
	r, _ := newTestResolver(lister, time.Minute)

	if _, err := r.Lookup(context.Background(), "folder1", "24CS001"); err == nil {
		t.Fatal("expected error from lister")
	}
}

func TestStatsSnapshot(t *testing.T) {
	lister := &fakeLister{files: map[string]string{"24CS001.jpg": "u"}}
	r, _ := newTestResolver(lister, time.Minute)
	ctx := context.Background()

	_, _ = r.Lookup(ctx, "folder1", "24CS001") // hit
	_, _ = r.Lookup(ctx, "folder1", "24CS999") // miss

	s := r.Stats()
	if s.Folders != 1 || s.Hits != 1 || s.Misses != 1 || s.Refreshes != 1 {
		t.Fatalf("stats = %+v", s)
	}
}
