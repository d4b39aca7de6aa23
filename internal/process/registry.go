package process

import (
	"context"
	"errors"
	"sync"
)

// Registry tracks subprocesses with a live child so they can be stopped
// together at shutdown. A nil *Registry ignores all calls.
type Registry struct {
	mu      sync.Mutex
	entries map[*Subprocess]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[*Subprocess]struct{}),
	}
}

func (r *Registry) add(s *Subprocess) {
	if r == nil || s == nil {
		return
	}
	r.mu.Lock()
	if r.entries == nil {
		r.entries = make(map[*Subprocess]struct{})
	}
	r.entries[s] = struct{}{}
	r.mu.Unlock()
}

func (r *Registry) remove(s *Subprocess) {
	if r == nil || s == nil {
		return
	}
	r.mu.Lock()
	delete(r.entries, s)
	r.mu.Unlock()
}

// Len reports how many subprocesses currently have a live child.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// StopAll stops every registered subprocess and joins their errors.
func (r *Registry) StopAll(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	entries := make([]*Subprocess, 0, len(r.entries))
	for entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.Unlock()

	var stopErr error
	for _, entry := range entries {
		if err := entry.Stop(ctx); err != nil {
			stopErr = errors.Join(stopErr, err)
		}
	}
	return stopErr
}
