package main

import (
	"sync"
	"time"
)

// flowState is the ephemeral multi-turn position of one user. It is distinct
// from the persisted language preference: a restart forgets it.
type flowState string

const (
	stateIdle              flowState = "idle"
	stateAwaitLanguage     flowState = "await_language"
	stateAwaitLatinText    flowState = "await_latin_text"
	stateAwaitCyrillicText flowState = "await_cyrillic_text"
	stateAwaitSTIR         flowState = "await_stir"
)

const defaultSessionTTL = 10 * time.Minute

type sessionEntry struct {
	state    flowState
	deadline time.Time
}

// SessionStore keys flow state by user id. Entries expire after the TTL and
// are removed when a flow completes, so an abandoned prompt reads as idle.
type SessionStore struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	entries map[int64]sessionEntry
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		ttl:     ttl,
		now:     time.Now,
		entries: map[int64]sessionEntry{},
	}
}

func (s *SessionStore) Get(userID int64) flowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		return stateIdle
	}
	if s.now().After(entry.deadline) {
		delete(s.entries, userID)
		return stateIdle
	}
	return entry.state
}

func (s *SessionStore) Set(userID int64, state flowState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == stateIdle {
		delete(s.entries, userID)
		return
	}
	s.entries[userID] = sessionEntry{state: state, deadline: s.now().Add(s.ttl)}
}

// Clear finishes the user's flow.
func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}
