package tracker

import (
	"context"
	"sync"
	"time"
)

// Registry indexes live slide hosts by session id
type Registry struct {
	mu    sync.Mutex
	hosts map[string]*Host
}

func NewRegistry() *Registry {
	return &Registry{hosts: make(map[string]*Host)}
}

func (r *Registry) Add(h *Host) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts[h.ID()] = h
}

func (r *Registry) Get(sessionID string) (*Host, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hosts[sessionID]
	return h, ok
}

// Remove detaches and returns the host for sessionID
func (r *Registry) Remove(sessionID string) (*Host, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hosts[sessionID]
	if ok {
		delete(r.hosts, sessionID)
	}
	return h, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hosts)
}

// FlushStudent finalizes every open slide of a learner
func (r *Registry) FlushStudent(ctx context.Context, studentID string) []Result {
	hosts := r.take(func(h *Host) bool { return h.slide.StudentID == studentID })

	var results []Result
	for _, h := range hosts {
		if res, ok := h.Flush(ctx); ok {
			results = append(results, res)
		}
	}
	return results
}

// FlushAll finalizes every open slide
func (r *Registry) FlushAll(ctx context.Context) []Result {
	hosts := r.take(func(*Host) bool { return true })

	var results []Result
	for _, h := range hosts {
		if res, ok := h.Flush(ctx); ok {
			results = append(results, res)
		}
	}
	return results
}

// Sweep finalizes slides mounted before now-maxAge whose player never unmounted them
func (r *Registry) Sweep(ctx context.Context, now time.Time, maxAge time.Duration) []Result {
	cutoff := now.Add(-maxAge)
	hosts := r.take(func(h *Host) bool { return h.startedAt.Before(cutoff) })

	var results []Result
	for _, h := range hosts {
		if res, ok := h.Unmount(ctx); ok {
			results = append(results, res)
		}
	}
	return results
}

func (r *Registry) take(match func(*Host) bool) []*Host {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Host
	for id, h := range r.hosts {
		if match(h) {
			out = append(out, h)
			delete(r.hosts, id)
		}
	}
	return out
}
