package match

import (
	"errors"
	"sync"
)

var ErrNotQueued = errors.New("not_queued")

// Membership tracks which queue currently holds each player. Joining
// any queue purges the player's prior membership in sibling scopes:
// the new queue wins and the old ticket is evicted. All matchmakers
// share one instance.
//
// Lock order is always matchmaker before membership; Membership never
// calls back into a matchmaker while holding its own lock.
type Membership struct {
	mu     sync.Mutex
	scopes map[string]string
	owners map[string]*Matchmaker
}

func NewMembership() *Membership {
	return &Membership{
		scopes: map[string]string{},
		owners: map[string]*Matchmaker{},
	}
}

func (m *Membership) register(mm *Matchmaker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[mm.scope] = mm
}

// take reassigns the player to scope and returns the matchmaker that
// held them before, so the caller can evict the stale ticket.
func (m *Membership) take(playerID, scope string) (*Matchmaker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, held := m.scopes[playerID]
	m.scopes[playerID] = scope
	if !held {
		return nil, false
	}
	return m.owners[prev], true
}

// release clears the membership only while the given scope still owns
// it, so a queue the player already left cannot revoke their new one.
func (m *Membership) release(playerID, scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scopes[playerID] == scope {
		delete(m.scopes, playerID)
	}
}

// holds reports whether scope is the player's current queue.
func (m *Membership) holds(playerID, scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scopes[playerID] == scope
}

// Scope reports which queue currently holds the player, if any.
func (m *Membership) Scope(playerID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scopes[playerID]
	return s, ok
}
