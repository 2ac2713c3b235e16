package kvstore

import (
	"bytes"
	"sync"
)

// MemStore is an in-process store. Every handle obtained from Context shares
// the same data; a write through one handle reaches the watchers of the
// other handles as a remote change, the way a write in one browser tab
// reaches the others.
type MemStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	handles  map[int]*MemContext
	nextID   int
	failures map[string]error
}

// NewMemStore creates an empty in-process store.
func NewMemStore() *MemStore {
	return &MemStore{
		data:     make(map[string][]byte),
		handles:  make(map[int]*MemContext),
		failures: make(map[string]error),
	}
}

// FailWrites makes every Set and Delete of key fail with err; a nil err
// clears the failure.
func (m *MemStore) FailWrites(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, key)
		return
	}
	m.failures[key] = err
}

// Context returns a new handle onto the store.
func (m *MemStore) Context() *MemContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := &MemContext{store: m, id: m.nextID}
	m.handles[c.id] = c
	return c
}

// MemContext is one execution context's handle onto a MemStore.
type MemContext struct {
	store    *MemStore
	id       int
	watchers watchers
}

func (c *MemContext) Get(key string) ([]byte, bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	v, ok := c.store.data[key]
	return clone(v), ok, nil
}

func (c *MemContext) Set(key string, value []byte) error {
	return c.write(key, clone(value))
}

func (c *MemContext) Delete(key string) error {
	return c.write(key, nil)
}

func (c *MemContext) write(key string, value []byte) error {
	m := c.store
	m.mu.Lock()
	if err, ok := m.failures[key]; ok {
		m.mu.Unlock()
		return err
	}
	old, existed := m.data[key]
	if value == nil {
		if !existed {
			m.mu.Unlock()
			return nil
		}
		delete(m.data, key)
	} else {
		if existed && bytes.Equal(old, value) {
			m.mu.Unlock()
			return nil
		}
		m.data[key] = value
	}
	type delivery struct {
		fns    []func(Change)
		remote bool
	}
	var out []delivery
	for id, h := range m.handles {
		out = append(out, delivery{fns: h.watchers.snapshot(key), remote: id != c.id})
	}
	m.mu.Unlock()

	for _, d := range out {
		for _, fn := range d.fns {
			fn(Change{Key: key, Old: clone(old), New: clone(value), Remote: d.remote})
		}
	}
	return nil
}

func (c *MemContext) Watch(key string, fn func(Change)) func() {
	c.store.mu.Lock()
	id := c.watchers.add(key, fn)
	c.store.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.store.mu.Lock()
			c.watchers.remove(key, id)
			c.store.mu.Unlock()
		})
	}
}

var _ Store = (*MemContext)(nil)
