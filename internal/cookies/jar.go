package cookies

import (
	"context"
	"errors"
)

// ErrProtected is returned by a Jar for cookies the host refuses to delete
// or overwrite.
var ErrProtected = errors.New("cookie is protected by the host")

// DefaultProtectedNames lists cookie names the browser runtime guards
// against modification through the cookie API.
var DefaultProtectedNames = []string{"XSRF-TOKEN"}

// Jar is the host's cookie storage for one browsing context.
type Jar interface {
	// List returns every cookie visible to the context.
	List(ctx context.Context) ([]Record, error)
	// Set creates or replaces the cookie identified by its domain, path and name.
	Set(ctx context.Context, r Record) error
	// Delete removes the cookie identified by name, domain and path.
	// Deleting a missing cookie is not an error.
	Delete(ctx context.Context, name, domain, path string) error
}

// ProtectedSet is an allow-list of protected cookie names.
type ProtectedSet map[string]struct{}

// NewProtectedSet builds a ProtectedSet from names.
func NewProtectedSet(names ...string) ProtectedSet {
	s := make(ProtectedSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is protected.
func (s ProtectedSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}
