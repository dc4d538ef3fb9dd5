// Package syncsessions keeps the process-local registry of chunked-upload
// sessions. A session coordinates a multi-request folder upload and the
// reconciling deletion applied when the upload completes.
//
// The registry is deliberately node-local: if the server restarts
// mid-session the client retries from begin, and partial uploads remain
// visible as plain upserts because no complete ever ran.
package syncsessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session tracks one in-flight chunked upload.
type Session struct {
	Token          string
	RoomID         string
	ClientID       string
	TotalChunks    int
	TotalFiles     int
	ReceivedChunks int
	PathHashes     map[string]struct{}
	StartedAt      time.Time
	LastActivity   time.Time
}

// ObservedPathHashes returns a snapshot of every path hash seen across all
// chunks so far.
func (s *Session) ObservedPathHashes() map[string]struct{} {
	out := make(map[string]struct{}, len(s.PathHashes))
	for h := range s.PathHashes {
		out[h] = struct{}{}
	}
	return out
}

// Registry is a mutex-guarded token -> session map with TTL expiry.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates a registry whose sessions expire after ttl of
// inactivity.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Begin allocates a new session and returns it.
func (r *Registry) Begin(roomID, clientID string, totalChunks, totalFiles int) *Session {
	now := r.now()
	s := &Session{
		Token:        uuid.NewString(),
		RoomID:       roomID,
		ClientID:     clientID,
		TotalChunks:  totalChunks,
		TotalFiles:   totalFiles,
		PathHashes:   make(map[string]struct{}),
		StartedAt:    now,
		LastActivity: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Token] = s
	return s
}

// Observe records the path hashes carried by one chunk and bumps the
// received counter. It returns the number of chunks still expected, or
// ok=false when the session is unknown, expired, or owned by another room.
func (r *Registry) Observe(roomID, token string, pathHashes []string) (remaining int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(roomID, token)
	if s == nil {
		return 0, false
	}

	for _, h := range pathHashes {
		s.PathHashes[h] = struct{}{}
	}
	s.ReceivedChunks++
	s.LastActivity = r.now()

	remaining = s.TotalChunks - s.ReceivedChunks
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Take removes and returns the session, or ok=false when it is unknown,
// expired, or owned by another room. Complete consumes sessions through
// this method.
func (r *Registry) Take(roomID, token string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(roomID, token)
	if s == nil {
		return nil, false
	}
	delete(r.sessions, token)
	return s, true
}

// lookup returns the live session for (roomID, token), dropping it if
// expired. Caller must hold r.mu.
func (r *Registry) lookup(roomID, token string) *Session {
	s, ok := r.sessions[token]
	if !ok || s.RoomID != roomID {
		return nil
	}
	if r.now().Sub(s.LastActivity) > r.ttl {
		delete(r.sessions, token)
		return nil
	}
	return s
}

// Sweep discards every expired session and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for token, s := range r.sessions {
		if now.Sub(s.LastActivity) > r.ttl {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed
}

// Len reports how many sessions are currently tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// RunSweeper sweeps on the given interval until stop is closed.
func (r *Registry) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-stop:
			return
		}
	}
}
