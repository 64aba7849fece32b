// Package photo resolves participant photos from an event's Drive
// folder through a TTL cache. The resolver is an injectable service
// owned by the verification boundary, not a module-level singleton.
package photo

import (
	"context"
	"strings"
	"sync"
	"time"
)

// FolderLister lists a Drive folder's files as name -> public URL.
type FolderLister interface {
	ListFolder(ctx context.Context, folderID string) (map[string]string, error)
}

// DefaultTTL is how long one folder listing stays fresh.
const DefaultTTL = 10 * time.Minute

// Stats is the cache health snapshot.
type Stats struct {
	Folders   int    `json:"folders"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Refreshes uint64 `json:"refreshes"`
}

type folderEntry struct {
	files   map[string]string
	fetched time.Time
}

// Resolver caches folder listings and matches roll numbers against file
// names.
type Resolver struct {
	lister FolderLister
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	cache     map[string]*folderEntry
	hits      uint64
	misses    uint64
	refreshes uint64
}

// NewResolver constructs a resolver with the given listing TTL.
func NewResolver(lister FolderLister, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		lister: lister,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]*folderEntry),
	}
}

// Lookup returns the photo URL for a roll number, or empty when no file
// name in the folder contains it. An expired or missing listing is
// refetched first.
func (r *Resolver) Lookup(ctx context.Context, folderID, rollNo string) (string, error) {
	roll := strings.ToUpper(strings.TrimSpace(rollNo))
	if roll == "" {
		return "", nil
	}

	files, err := r.files(ctx, folderID)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, url := range files {
		if strings.Contains(strings.ToUpper(name), roll) {
			r.hits++
			return url, nil
		}
	}
	r.misses++
	return "", nil
}

// Refresh drops the cached listing for a folder and refetches it.
func (r *Resolver) Refresh(ctx context.Context, folderID string) error {
	r.mu.Lock()
	delete(r.cache, folderID)
	r.mu.Unlock()
	_, err := r.files(ctx, folderID)
	return err
}

// Stats reports cache health.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Folders:   len(r.cache),
		Hits:      r.hits,
		Misses:    r.misses,
		Refreshes: r.refreshes,
	}
}

func (r *Resolver) files(ctx context.Context, folderID string) (map[string]string, error) {
	r.mu.Lock()
	entry, ok := r.cache[folderID]
	if ok && r.now().Sub(entry.fetched) < r.ttl {
		files := entry.files
		r.mu.Unlock()
		return files, nil
	}
	r.mu.Unlock()

	files, err := r.lister.ListFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[folderID] = &folderEntry{files: files, fetched: r.now()}
	r.refreshes++
	r.mu.Unlock()
	return files, nil
}
