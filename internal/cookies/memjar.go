package cookies

import (
	"context"
	"errors"
	"sync"
)

// MemJar is an in-memory Jar. It keeps insertion order, can mark names as
// protected (Delete and Set return ErrProtected) and records every mutation,
// which makes it the jar of choice for tests and throwaway sessions.
type MemJar struct {
	mu        sync.Mutex
	order     []string
	records   map[string]Record
	protected ProtectedSet
	failSet   map[string]error

	SetCalls    []Record
	DeleteCalls []string
}

// NewMemJar creates a jar holding the given records.
func NewMemJar(records ...Record) *MemJar {
	j := &MemJar{
		records:   make(map[string]Record),
		protected: NewProtectedSet(),
		failSet:   make(map[string]error),
	}
	for _, r := range records {
		j.put(r)
	}
	return j
}

// Protect marks names as protected.
func (j *MemJar) Protect(names ...string) *MemJar {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, n := range names {
		j.protected[n] = struct{}{}
	}
	return j
}

// FailSet makes every Set of a cookie called name return err.
func (j *MemJar) FailSet(name string, err error) *MemJar {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failSet[name] = err
	return j
}

func (j *MemJar) put(r Record) {
	k := r.Key()
	if _, ok := j.records[k]; !ok {
		j.order = append(j.order, k)
	}
	j.records[k] = r
}

func (j *MemJar) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Record, 0, len(j.order))
	for _, k := range j.order {
		out = append(out, j.records[k])
	}
	return out, nil
}

func (j *MemJar) Set(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.SetCalls = append(j.SetCalls, r)
	if err, ok := j.failSet[r.Name]; ok {
		return err
	}
	if j.protected.Has(r.Name) {
		return ErrProtected
	}
	j.put(r)
	return nil
}

func (j *MemJar) Delete(ctx context.Context, name, domain, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DeleteCalls = append(j.DeleteCalls, name)
	if j.protected.Has(name) {
		return ErrProtected
	}
	k := Record{Name: name, Domain: domain, Path: path}.Key()
	if _, ok := j.records[k]; !ok {
		return nil
	}
	delete(j.records, k)
	for i, ok := range j.order {
		if ok == k {
			j.order = append(j.order[:i], j.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of cookies in the jar.
func (j *MemJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

// Lookup returns the first cookie called name.
func (j *MemJar) Lookup(name string) (Record, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, k := range j.order {
		if r := j.records[k]; r.Name == name {
			return r, true
		}
	}
	return Record{}, false
}

// IsProtected reports whether err signals a protected cookie.
func IsProtected(err error) bool {
	return errors.Is(err, ErrProtected)
}

var _ Jar = (*MemJar)(nil)
