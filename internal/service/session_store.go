package service

import (
	"sync"
	"time"

	"github.com/noah-isme/timegrid-api/internal/timetable"
)

// editSession is one user's in-memory editing state. The embedded Store
// serialises grid writes; mu guards the metadata and the store pointer, which
// is swapped when the session is regenerated.
type editSession struct {
	mu sync.RWMutex

	id                string
	timetableID       string
	faculty           string
	semester          string
	term              string
	score             float64
	upstreamConflicts []string
	store             *timetable.Store
	createdAt         time.Time
}

type sessionMeta struct {
	id                string
	timetableID       string
	faculty           string
	semester          string
	term              string
	score             float64
	upstreamConflicts []string
}

func (s *editSession) snapshot() (sessionMeta, *timetable.Store) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sessionMeta{
		id:                s.id,
		timetableID:       s.timetableID,
		faculty:           s.faculty,
		semester:          s.semester,
		term:              s.term,
		score:             s.score,
		upstreamConflicts: append([]string(nil), s.upstreamConflicts...),
	}, s.store
}

type sessionEntry struct {
	session  *editSession
	lastSeen time.Time
}

// sessionStore keeps sessions alive for ttl after their last access.
type sessionStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]*sessionEntry
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]*sessionEntry),
	}
}

func (s *sessionStore) Save(session *editSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[session.id] = &sessionEntry{session: session, lastSeen: s.now()}
}

// Get returns a live session and extends its lifetime.
func (s *sessionStore) Get(id string) (*editSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(entry.lastSeen) > s.ttl {
		delete(s.items, id)
		return nil, false
	}
	entry.lastSeen = now
	return entry.session, true
}

func (s *sessionStore) ExpiresAt(id string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.items[id]; ok {
		return entry.lastSeen.Add(s.ttl)
	}
	return time.Time{}
}

func (s *sessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	delete(s.items, id)
	return ok
}

// Sweep drops expired sessions and returns how many remain.
func (s *sessionStore) Sweep() (removed, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, entry := range s.items {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.items, id)
			removed++
		}
	}
	return removed, len(s.items)
}

func (s *sessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
