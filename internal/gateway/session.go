package gateway

import (
	"sync"
	"time"
)

// recentEvents is how many message ids each session remembers.
const recentEvents = 64

// SessionKey uniquely identifies a conversation context.
type SessionKey struct {
	ChannelType string
	ChannelID   string
	PeerID      string
}

// Session holds per-peer state.
type Session struct {
	Key          SessionKey
	LastActivity time.Time
	recent       []string // ring of recently seen message ids
	next         int
}

func (s *Session) seen(id string) bool {
	for _, r := range s.recent {
		if r == id {
			return true
		}
	}
	return false
}

func (s *Session) remember(id string) {
	if len(s.recent) < recentEvents {
		s.recent = append(s.recent, id)
		return
	}
	s.recent[s.next] = id
	s.next = (s.next + 1) % recentEvents
}

// SessionManager tracks conversations so a message redelivered after a
// stream reconnect is handled only once.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[SessionKey]*Session
	timeout  time.Duration
	now      func() time.Time
}

// NewSessionManager creates a session manager. Sessions idle for longer than
// timeout are forgotten.
func NewSessionManager(timeout time.Duration) *SessionManager {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &SessionManager{
		sessions: make(map[SessionKey]*Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Observe records message id for key and reports whether it is new. An empty
// id is always new.
func (sm *SessionManager) Observe(key SessionKey, id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	sm.expireLocked(now)

	s, ok := sm.sessions[key]
	if !ok {
		s = &Session{Key: key}
		sm.sessions[key] = s
	}
	s.LastActivity = now
	if id == "" {
		return true
	}
	if s.seen(id) {
		return false
	}
	s.remember(id)
	return true
}

// ClearSession forgets a conversation.
func (sm *SessionManager) ClearSession(key SessionKey) {
	sm.mu.Lock()
	delete(sm.sessions, key)
	sm.mu.Unlock()
}

// Len reports the number of live sessions.
func (sm *SessionManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

func (sm *SessionManager) expireLocked(now time.Time) {
	for k, s := range sm.sessions {
		if now.Sub(s.LastActivity) > sm.timeout {
			delete(sm.sessions, k)
		}
	}
}
