// Package storage persists the reminder document: a JSON-object-shaped map
// of task id to task. Both backends expose whole-document reads and writes;
// Mutate is the atomicity boundary, serialized per store so concurrent
// callers cannot overwrite each other's in-flight edits.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/sandeepkv93/remind/internal/model"
)

var ErrNotFound = errors.New("storage: not found")

type Store interface {
	// ReadAll returns a deep copy of the stored document.
	ReadAll(ctx context.Context) (map[string]model.Task, error)
	// WriteAll replaces the stored document.
	WriteAll(ctx context.Context, tasks map[string]model.Task) error
	// Mutate runs fn against a copy of the document and commits the result
	// if fn returns nil. The read-modify-write round trip is one
	// transaction; an error from fn leaves the store untouched.
	Mutate(ctx context.Context, fn func(map[string]model.Task) error) error
	// Subscribe registers a callback invoked after every successful write.
	// The returned cancel removes the registration.
	Subscribe(fn func()) (cancel func())
	Close() error
}

// signal is a minimal store-changed broadcaster shared by the backends.
type signal struct {
	mu   sync.Mutex
	subs map[int]func()
	next int
}

func (s *signal) subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func())
	}
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *signal) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func cloneDoc(tasks map[string]model.Task) map[string]model.Task {
	out := make(map[string]model.Task, len(tasks))
	for id, t := range tasks {
		out[id] = t.Clone()
	}
	return out
}
