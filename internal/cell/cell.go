// Package cell binds one key of a kvstore.Store to a live in-memory value.
//
// A Cell initializes from the store (or a default), writes every mutation
// back, follows changes made to the same key by other execution contexts,
// and stops following them once closed. Remote changes overwrite the local
// value unconditionally: the last writer wins and nothing is merged.
package cell

import (
	"encoding/json"
	"sync"

	"github.com/warpdl/cookieshare/internal/kvstore"
	"github.com/warpdl/cookieshare/pkg/logger"
)

// Cell is a typed, persisted, observable value. T must round-trip through
// encoding/json.
type Cell[T any] struct {
	store kvstore.Store
	key   string
	def   T
	log   logger.Logger

	mu     sync.RWMutex
	value  T
	subs   map[int]func(old, new T)
	nextID int
	stop   func()
	closed bool
}

// Option configures a Cell.
type Option func(*options)

type options struct {
	log logger.Logger
}

// WithLogger sets the logger that receives persistence failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New binds key of store. The stored value is decoded into T; a missing key
// or undecodable bytes leave the cell at def.
func New[T any](store kvstore.Store, key string, def T, opts ...Option) *Cell[T] {
	o := options{log: logger.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cell[T]{
		store: store,
		key:   key,
		def:   def,
		log:   o.log,
		value: def,
		subs:  make(map[int]func(old, new T)),
	}
	if raw, ok, err := store.Get(key); err != nil {
		c.log.Warning("cell %s: read failed, using default: %v", key, err)
	} else if ok {
		if v, err := decode[T](raw); err != nil {
			c.log.Warning("cell %s: stored value unreadable, using default: %v", key, err)
		} else {
			c.value = v
		}
	}
	c.stop = store.Watch(key, c.onChange)
	return c
}

func decode[T any](raw []byte) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// Key returns the bound store key.
func (c *Cell[T]) Key() string {
	return c.key
}

// Get returns the in-memory value without touching storage.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set updates the in-memory value and persists it. Persistence failures are
// logged and otherwise ignored; the value then lives in memory only.
func (c *Cell[T]) Set(v T) {
	old := c.swap(v)
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Error("cell %s: encode failed, value kept in memory: %v", c.key, err)
	} else if err := c.store.Set(c.key, raw); err != nil {
		c.log.Error("cell %s: write failed, value kept in memory: %v", c.key, err)
	}
	c.notify(old, v)
}

// Reset restores the default in memory. Storage is left untouched.
func (c *Cell[T]) Reset() {
	old := c.swap(c.def)
	c.notify(old, c.def)
}

// Remove deletes the key from storage and resets the value to the default.
func (c *Cell[T]) Remove() {
	if err := c.store.Delete(c.key); err != nil {
		c.log.Error("cell %s: delete failed: %v", c.key, err)
	}
	c.Reset()
}

// Subscribe registers fn to run after every local or remote change.
// The returned function cancels the subscription.
func (c *Cell[T]) Subscribe(fn func(old, new T)) (cancel func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close stops following remote changes. It is idempotent.
func (c *Cell[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	stop := c.stop
	c.mu.Unlock()
	stop()
}

func (c *Cell[T]) onChange(ch kvstore.Change) {
	if !ch.Remote {
		return
	}
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	next := c.def
	if !ch.Deleted() {
		v, err := decode[T](ch.New)
		if err != nil {
			c.log.Warning("cell %s: ignoring unreadable remote value: %v", c.key, err)
			return
		}
		next = v
	}
	old := c.swap(next)
	c.notify(old, next)
}

func (c *Cell[T]) swap(v T) (old T) {
	c.mu.Lock()
	old = c.value
	c.value = v
	c.mu.Unlock()
	return old
}

func (c *Cell[T]) notify(old, new T) {
	c.mu.RLock()
	fns := make([]func(old, new T), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()
	for _, fn := range fns {
		fn(old, new)
	}
}
