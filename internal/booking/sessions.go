package booking

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions keeps in-progress workflows per guest and drops the ones that
// have been idle longer than the TTL.
type Sessions struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]*session
	opts  []Option
}

type session struct {
	guest    string
	workflow *Workflow
	lastSeen time.Time
}

// NewSessions creates a registry. opts are passed to every new Workflow.
func NewSessions(ttl time.Duration, opts ...Option) *Sessions {
	return &Sessions{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]*session),
		opts:  opts,
	}
}

// Start opens a new workflow for guest and returns its id
func (s *Sessions) Start(guest string, api API) (string, *Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	id := uuid.NewString()
	wf := NewWorkflow(api, s.opts...)
	s.items[id] = &session{guest: guest, workflow: wf, lastSeen: s.now()}
	return id, wf
}

// Get returns guest's workflow id. Workflows owned by another guest are
// reported as absent.
func (s *Sessions) Get(guest, id string) (*Workflow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	sess, ok := s.items[id]
	if !ok || sess.guest != guest {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.workflow, true
}

// Delete drops guest's workflow id and reports whether it existed
func (s *Sessions) Delete(guest, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if !ok || sess.guest != guest {
		return false
	}
	delete(s.items, id)
	return true
}

// Len returns the number of live workflows
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.items)
}

func (s *Sessions) sweepLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.items {
		if sess.lastSeen.Before(cutoff) {
			delete(s.items, id)
		}
	}
}
