package session

import (
	"sync"
	"time"

	"storio/internal/clock"
)

// Store manages booking sessions keyed by user. One selection at a
// time per user; starting a session for another studio replaces the
// old one.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	timeout  time.Duration
	clk      clock.Clock
	loc      *time.Location
}

// NewStore creates a session store with the given idle timeout.
func NewStore(timeout time.Duration, clk clock.Clock, loc *time.Location) *Store {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	if clk == nil {
		clk = clock.System()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		sessions: make(map[int64]*Session),
		timeout:  timeout,
		clk:      clk,
		loc:      loc,
	}
}

// Get returns the user's session, or nil if absent or expired.
func (st *Store) Get(userID int64) *Session {
	st.mu.RLock()
	s := st.sessions[userID]
	st.mu.RUnlock()
	if s == nil || s.IsExpired(st.timeout) {
		return nil
	}
	return s
}

// Start creates a fresh session for the user and studio, discarding
// any in-progress one.
func (st *Store) Start(userID, studioID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := newSession(userID, studioID, st.clk, st.loc)
	st.sessions[userID] = s
	return s
}

// Delete discards the user's session.
func (st *Store) Delete(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, userID)
}

// Cleanup removes expired sessions and returns how many were dropped.
func (st *Store) Cleanup() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for userID, s := range st.sessions {
		if s.IsExpired(st.timeout) {
			delete(st.sessions, userID)
			removed++
		}
	}
	return removed
}
