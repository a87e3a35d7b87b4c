// Package idgen provides unique identifier generation for new lists and items.
package idgen

import "github.com/google/uuid"

// Generator produces globally-unique opaque identifiers. It is injected as
// a capability so tests can substitute deterministic IDs.
type Generator interface {
	NewID() string
}

// UUID generates version 4 UUIDs.
type UUID struct{}

// NewID returns a new random UUID string.
func (UUID) NewID() string {
	return uuid.NewString()
}

// Fixed returns the given IDs in order, then panics. Test helper.
type Fixed struct {
	IDs  []string
	next int
}

func (f *Fixed) NewID() string {
	if f.next >= len(f.IDs) {
		panic("idgen: fixed generator exhausted")
	}
	id := f.IDs[f.next]
	f.next++
	return id
}
