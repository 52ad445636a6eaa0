package server

import (
	"time"

	"github.com/google/uuid"
)

// session binds a transport endpoint to a player id. Owned by the simulation loop.
type session struct {
	endpoint string
	playerID uint32
	nonce    uuid.UUID
	welcome  []byte
	joinedAt time.Time
	lastSeen time.Time
}

func (s *session) expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.lastSeen) > timeout
}

type sessionTable struct {
	byEndpoint map[string]*session
	byID       map[uint32]*session
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		byEndpoint: make(map[string]*session),
		byID:       make(map[uint32]*session),
	}
}

func (t *sessionTable) add(s *session) {
	t.byEndpoint[s.endpoint] = s
	t.byID[s.playerID] = s
}

func (t *sessionTable) remove(s *session) {
	delete(t.byEndpoint, s.endpoint)
	delete(t.byID, s.playerID)
}

func (t *sessionTable) byFrom(endpoint string) (*session, bool) {
	s, ok := t.byEndpoint[endpoint]
	return s, ok
}

// bound returns the session only if id belongs to the endpoint that sent it.
func (t *sessionTable) bound(endpoint string, id uint32) (*session, bool) {
	s, ok := t.byEndpoint[endpoint]
	if !ok || s.playerID != id {
		return nil, false
	}
	return s, true
}

func (t *sessionTable) len() int {
	return len(t.byEndpoint)
}
