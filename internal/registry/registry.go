// Package registry keeps the user's ordered list of shared cookie-sets.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warpdl/cookieshare/internal/cell"
	"github.com/warpdl/cookieshare/internal/kvstore"
	"github.com/warpdl/cookieshare/pkg/logger"
)

// StorageKey is the store key holding the saved list.
const StorageKey = "cookie_share_saved_cookies"

// ErrIndexOutOfRange is returned by Reorder for positions outside the list.
var ErrIndexOutOfRange = errors.New("registry: index out of range")

// Ref identifies a cookie-set on the relay.
type Ref struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Entry is one saved cookie-set.
type Entry struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Note     string `json:"note,omitempty"`
	Order    int    `json:"order"`
	LastUsed int64  `json:"lastUsed,omitempty"` // epoch millis
	Pinned   bool   `json:"pinned,omitempty"`
}

// LastUsedTime converts LastUsed to a time, zero when never used.
func (e Entry) LastUsedTime() time.Time {
	if e.LastUsed == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.LastUsed)
}

// Patch holds the fields Update merges into an entry; nil fields are left
// alone. ID and Order are not patchable.
type Patch struct {
	URL      *string
	Note     *string
	Pinned   *bool
	LastUsed *int64
}

// Registry is the saved list, persisted through a cell.Cell.
// All mutations are synchronous and visible to List immediately.
type Registry struct {
	mu   sync.Mutex
	cell *cell.Cell[[]Entry]
	now  func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the clock used for LastUsed stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New binds a registry to store.
func New(store kvstore.Store, log logger.Logger, opts ...Option) *Registry {
	r := &Registry{
		cell: cell.New[[]Entry](store, StorageKey, nil, cell.WithLogger(log)),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close stops following changes made by other contexts.
func (r *Registry) Close() {
	r.cell.Close()
}

// Subscribe registers fn for every change of the list, local or remote.
func (r *Registry) Subscribe(fn func()) (cancel func()) {
	return r.cell.Subscribe(func(_, _ []Entry) { fn() })
}

// snapshot returns a private copy of the stored entries.
func (r *Registry) snapshot() []Entry {
	return append([]Entry(nil), r.cell.Get()...)
}

// sorted returns the stored entries ordered by Order; ties keep their
// stored position.
func sorted(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// List returns the entries in display order. Order in the result is the
// position in that view, so it always reads 0..n-1 even when removals left
// gaps in the stored values.
func (r *Registry) List() []Entry {
	out := sorted(r.cell.Get())
	for i := range out {
		out[i].Order = i
	}
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.cell.Get())
}

// Get returns the entry with id.
func (r *Registry) Get(id string) (Entry, bool) {
	for _, e := range r.List() {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Add appends ref after the last entry with LastUsed set to now.
// Adding an id that is already saved is a no-op; it reports whether an
// entry was added.
func (r *Registry) Add(ref Ref, note string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.snapshot()
	maxOrder := -1
	for _, e := range entries {
		if e.ID == ref.ID {
			return false
		}
		if e.Order > maxOrder {
			maxOrder = e.Order
		}
	}
	entries = append(entries, Entry{
		ID:       ref.ID,
		URL:      ref.URL,
		Note:     note,
		Order:    maxOrder + 1,
		LastUsed: r.now().UnixMilli(),
	})
	r.cell.Set(entries)
	return true
}

// Remove deletes the entry with id. Remaining entries keep their stored
// order values.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.snapshot()
	for i, e := range entries {
		if e.ID == id {
			r.cell.Set(append(entries[:i], entries[i+1:]...))
			return true
		}
	}
	return false
}

// Update shallow-merges p into the entry with id. Missing ids are a no-op.
func (r *Registry) Update(id string, p Patch) bool {
	return r.mutate(id, func(e *Entry) {
		if p.URL != nil {
			e.URL = *p.URL
		}
		if p.Note != nil {
			e.Note = *p.Note
		}
		if p.Pinned != nil {
			e.Pinned = *p.Pinned
		}
		if p.LastUsed != nil {
			e.LastUsed = *p.LastUsed
		}
	})
}

// Touch sets LastUsed of the entry with id to now.
func (r *Registry) Touch(id string) bool {
	now := r.now().UnixMilli()
	return r.mutate(id, func(e *Entry) { e.LastUsed = now })
}

func (r *Registry) mutate(id string, fn func(*Entry)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.snapshot()
	for i := range entries {
		if entries[i].ID == id {
			fn(&entries[i])
			r.cell.Set(entries)
			return true
		}
	}
	return false
}

// Reorder moves the entry at position from of the sorted view to position
// to, renumbers every entry by its new position and persists the whole list
// in one write.
func (r *Registry) Reorder(from, to int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := sorted(r.cell.Get())
	n := len(entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d in list of %d", ErrIndexOutOfRange, from, to, n)
	}
	moved := entries[from]
	entries = append(entries[:from], entries[from+1:]...)
	entries = append(entries[:to], append([]Entry{moved}, entries[to:]...)...)
	for i := range entries {
		entries[i].Order = i
	}
	r.cell.Set(entries)
	return nil
}
