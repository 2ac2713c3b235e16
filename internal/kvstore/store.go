// Package kvstore provides the durable key/value storage behind cookieshare's
// persisted state, with change notification across execution contexts
// (other handles of a MemStore, or other processes sharing a FileStore).
package kvstore

import "errors"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kvstore: store closed")

// Change describes one update of a key. New is nil when the key was deleted.
// Remote is true when the change originated in another execution context.
type Change struct {
	Key    string
	Old    []byte
	New    []byte
	Remote bool
}

// Deleted reports whether the change removed the key.
func (c Change) Deleted() bool {
	return c.New == nil
}

// Store is a durable key/value store scoped to the application.
type Store interface {
	// Get returns the stored bytes for key and whether the key exists.
	Get(key string) ([]byte, bool, error)
	// Set stores value under key.
	Set(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Watch registers fn for changes of key, local and remote.
	// The returned function cancels the registration and is idempotent.
	Watch(key string, fn func(Change)) (cancel func())
}

// watchers is a registration list shared by the Store implementations.
type watchers struct {
	next int
	fns  map[string]map[int]func(Change)
}

func (w *watchers) add(key string, fn func(Change)) int {
	if w.fns == nil {
		w.fns = make(map[string]map[int]func(Change))
	}
	if w.fns[key] == nil {
		w.fns[key] = make(map[int]func(Change))
	}
	w.next++
	w.fns[key][w.next] = fn
	return w.next
}

func (w *watchers) remove(key string, id int) {
	delete(w.fns[key], id)
	if len(w.fns[key]) == 0 {
		delete(w.fns, key)
	}
}

// snapshot copies the callbacks for key so they can run without the lock.
func (w *watchers) snapshot(key string) []func(Change) {
	out := make([]func(Change), 0, len(w.fns[key]))
	for _, fn := range w.fns[key] {
		out = append(out, fn)
	}
	return out
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
