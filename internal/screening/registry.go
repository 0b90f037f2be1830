package screening

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wonny/openscreen/internal/contracts"
)

// ErrDatasetNotFound is returned for an unknown dataset id
var ErrDatasetNotFound = errors.New("dataset not found")

// Registry holds the sessions of all uploads served by one process
type Registry struct {
	mu        sync.RWMutex
	engine    *Engine
	sessions  map[string]*Session
	listeners []func(Event)
	now       func() time.Time
}

// NewRegistry creates an empty registry screening through engine
func NewRegistry(engine *Engine) *Registry {
	return &Registry{
		engine:   engine,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Subscribe registers fn for every session event.
// Listeners run synchronously on the caller's goroutine and must not block.
func (r *Registry) Subscribe(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Registry) publish(ev Event) {
	r.mu.RLock()
	listeners := r.listeners
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Add opens a session for ds, replacing any session with the same id
func (r *Registry) Add(ds *contracts.Dataset) *Session {
	s := NewSession(r.engine, ds)
	s.publish = r.publish
	s.touched = r.now()

	r.mu.Lock()
	r.sessions[ds.ID] = s
	r.mu.Unlock()

	r.publish(Event{Type: EventLoaded, DatasetID: ds.ID, Name: ds.Name, Rows: ds.Len()})
	return s
}

// Get returns the session for id and marks it used
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrDatasetNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Delete drops the session for id
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrDatasetNotFound
	}
	r.publish(Event{Type: EventDeleted, DatasetID: id, Name: s.dataset.Name})
	return nil
}

// List returns all sessions, oldest upload first
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].dataset.LoadedAt.Before(out[j].dataset.LoadedAt)
	})
	return out
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CleanStale drops sessions idle for longer than maxIdle and returns how many
func (r *Registry) CleanStale(maxIdle time.Duration) int {
	now := r.now()

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if now.Sub(s.LastUsed()) > maxIdle {
			delete(r.sessions, id)
			expired = append(expired, s)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.publish(Event{Type: EventExpired, DatasetID: s.dataset.ID, Name: s.dataset.Name})
	}
	return len(expired)
}

// Stats returns registry statistics against maxIdle
func (r *Registry) Stats(maxIdle time.Duration) RegistryStats {
	now := r.now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{TotalCount: len(r.sessions)}
	for _, s := range r.sessions {
		if now.Sub(s.LastUsed()) > maxIdle {
			stats.StaleCount++
		}
		if s.Last() != nil {
			stats.ScreenedCount++
		}
		stats.RowCount += s.dataset.Len()
	}
	stats.FreshCount = stats.TotalCount - stats.StaleCount

	return stats
}

// RegistryStats represents registry statistics
type RegistryStats struct {
	TotalCount    int `json:"total_count"`
	FreshCount    int `json:"fresh_count"`
	StaleCount    int `json:"stale_count"`
	ScreenedCount int `json:"screened_count"`
	RowCount      int `json:"row_count"`
}
