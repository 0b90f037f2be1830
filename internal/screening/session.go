package screening

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/headers"
)

// EventType names a change to a session's view
type EventType string

const (
	EventLoaded   EventType = "loaded"
	EventScreened EventType = "screened"
	EventCleared  EventType = "cleared"
	EventDeleted  EventType = "deleted"
	EventExpired  EventType = "expired"
)

// Event is published after every view change
type Event struct {
	Type      EventType               `json:"type"`
	DatasetID string                  `json:"dataset_id"`
	Name      string                  `json:"name,omitempty"`
	Rows      int                     `json:"rows"`
	Summary   string                  `json:"summary,omitempty"`
	Result    *contracts.ScreenResult `json:"result,omitempty"`
}

// Session is one upload and its current filtered view.
// The view is only ever replaced wholesale: by a successful Screen or by Clear.
type Session struct {
	mu      sync.RWMutex
	engine  *Engine
	dataset *contracts.Dataset
	roles   headers.Roles
	view    []contracts.LabeledRow
	last    *contracts.ScreenResult
	touched time.Time
	publish func(Event)
}

// NewSession starts a session showing the full dataset
func NewSession(engine *Engine, ds *contracts.Dataset) *Session {
	return &Session{
		engine:  engine,
		dataset: ds,
		roles:   headers.Resolve(ds.Headers),
		view:    contracts.Unlabeled(ds.Rows),
		touched: time.Now(),
		publish: func(Event) {},
	}
}

// Dataset returns the loaded upload
func (s *Session) Dataset() *contracts.Dataset {
	return s.dataset
}

// Roles returns the header roles resolved at load
func (s *Session) Roles() headers.Roles {
	return s.roles
}

// Screen runs the pipeline and replaces the view. On error the previous
// view and result stay in place.
func (s *Session) Screen(ctx context.Context, req contracts.ScreenRequest) (*contracts.ScreenResult, error) {
	res, err := s.engine.Run(ctx, s.dataset, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.view = res.Rows
	s.last = res
	s.touched = time.Now()
	s.mu.Unlock()

	s.publish(Event{
		Type:      EventScreened,
		DatasetID: s.dataset.ID,
		Name:      s.dataset.Name,
		Rows:      len(res.Rows),
		Summary:   res.Summary(),
		Result:    res,
	})
	return res, nil
}

// Clear resets the view to the full, unlabeled dataset
func (s *Session) Clear() {
	s.mu.Lock()
	s.view = contracts.Unlabeled(s.dataset.Rows)
	s.last = nil
	s.touched = time.Now()
	s.mu.Unlock()

	s.publish(Event{
		Type:      EventCleared,
		DatasetID: s.dataset.ID,
		Name:      s.dataset.Name,
		Rows:      s.dataset.Len(),
	})
}

// View returns the current filtered view
func (s *Session) View() []contracts.LabeledRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Last returns the result behind the current view, nil when cleared
func (s *Session) Last() *contracts.ScreenResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// DisplayHeaders returns the table columns: the resolved display headers,
// plus Label once a screening result is showing
func (s *Session) DisplayHeaders() []string {
	cols := s.roles.DisplayHeaders()
	if s.Last() != nil {
		cols = append(cols, contracts.LabelHeader)
	}
	return cols
}

// LastUsed returns when the session was last fetched, screened or cleared
func (s *Session) LastUsed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touched
}

func (s *Session) touch(at time.Time) {
	s.mu.Lock()
	s.touched = at
	s.mu.Unlock()
}
