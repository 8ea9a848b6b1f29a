package realtime

import (
	"sync"
)

const closeSessionReplaced = 4001

// Router tracks live websocket sessions. It keeps one active Connection per
// user; conversation fan-out goes through the pub/sub feed instead.
type Router struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection // sessionID -> connection
	userSessions map[string]string      // userID -> sessionID
}

// NewRouter constructs an initialized Router.
func NewRouter() *Router {
	return &Router{
		sessions:     make(map[string]*Connection),
		userSessions: make(map[string]string),
	}
}

// Attach registers a connection for the given user. If a previous session exists,
// it is removed and closed after the swap to enforce one active socket per user.
func (r *Router) Attach(conn *Connection) {
	var previous *Connection

	r.mu.Lock()
	if existingID, ok := r.userSessions[conn.UserID]; ok {
		if existing := r.sessions[existingID]; existing != nil {
			previous = existing
			r.detachLocked(existingID)
		}
	}

	r.sessions[conn.ID] = conn
	r.userSessions[conn.UserID] = conn.ID
	r.mu.Unlock()

	conn.Start()

	if previous != nil {
		previous.Close(closeSessionReplaced, "session replaced")
	}
}

// Detach removes a connection if it is still tracked.
func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	r.detachLocked(conn.ID)
	r.mu.Unlock()
}

// IsOnline reports whether userID currently holds a socket on this node.
func (r *Router) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.userSessions[userID]
	return ok
}

// Sessions counts tracked connections. Reported by the health route.
func (r *Router) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close terminates all tracked connections and clears router state.
func (r *Router) Close() {
	r.mu.Lock()
	sessions := make([]*Connection, 0, len(r.sessions))
	for _, conn := range r.sessions {
		sessions = append(sessions, conn)
	}
	r.sessions = make(map[string]*Connection)
	r.userSessions = make(map[string]string)
	r.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "router shutdown")
	}
}

func (r *Router) detachLocked(sessionID string) {
	conn, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)

	if current, ok := r.userSessions[conn.UserID]; ok && current == sessionID {
		delete(r.userSessions, conn.UserID)
	}
}
