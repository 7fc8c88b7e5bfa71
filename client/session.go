package client

import (
	"sync"

	"github.com/taskboard/apiserver/types"
)

// SessionState is a point-in-time copy of a Session.
type SessionState struct {
	User            *types.PublicUser
	IsAuthenticated bool
	Loading         bool
}

// Session is the single authority on who is signed in. Create one at
// application start and share it by reference.
type Session struct {
	mu              sync.RWMutex
	user            *types.PublicUser
	isAuthenticated bool
	loading         bool
	listeners       []func(SessionState)
}

// NewSession returns a session that is loading until Client.Bootstrap finishes.
func NewSession() *Session {
	return &Session{loading: true}
}

// State returns a copy of the current state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// User returns the signed-in user, if any.
func (s *Session) User() (types.PublicUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return types.PublicUser{}, false
	}
	return *s.user, true
}

// IsAuthenticated reports whether a user is signed in.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAuthenticated
}

// Loading reports whether the initial session check is still running.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// OnChange registers fn to run after every state change.
func (s *Session) OnChange(fn func(SessionState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) authenticate(user types.PublicUser) {
	s.update(func() bool {
		s.user = &user
		s.isAuthenticated = true
		s.loading = false
		return true
	})
}

// demote clears the user and reports whether the session was authenticated before.
func (s *Session) demote() bool {
	var was bool
	s.update(func() bool {
		was = s.isAuthenticated
		changed := was || s.loading || s.user != nil
		s.user = nil
		s.isAuthenticated = false
		s.loading = false
		return changed
	})
	return was
}

func (s *Session) update(mutate func() bool) {
	s.mu.Lock()
	changed := mutate()
	state := s.stateLocked()
	listeners := append([]func(SessionState){}, s.listeners...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(state)
	}
}

func (s *Session) stateLocked() SessionState {
	state := SessionState{IsAuthenticated: s.isAuthenticated, Loading: s.loading}
	if s.user != nil {
		user := *s.user
		state.User = &user
	}
	return state
}
