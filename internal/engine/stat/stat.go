// Package stat is the statistics collaborator seam: a read/write store
// keyed (playerID, gameType), consulted at join time for gating and
// updated after round settlement. Durable backends live outside this
// process; Memory is the in-process implementation.
package stat

import (
	"context"
	"sync"

	"tablecenter/internal/engine/rules"
)

// DefaultRating is what an unrecorded player starts at. Get never fails
// on an unknown key; it returns fully constructed defaults.
const DefaultRating = 1000

type Outcome struct {
	Won          bool
	Disconnected bool
	RatingDelta  int
}

type Store interface {
	Get(ctx context.Context, playerID, gameType string) (rules.PlayerStats, error)
	Put(ctx context.Context, playerID, gameType string, stats rules.PlayerStats) error
	Record(ctx context.Context, playerID, gameType string, o Outcome) error
}

type key struct {
	playerID string
	gameType string
}

type entry struct {
	stats       rules.PlayerStats
	wins        int
	disconnects int
}

type Memory struct {
	mu      sync.RWMutex
	entries map[key]*entry
}

func NewMemory() *Memory {
	return &Memory{entries: map[key]*entry{}}
}

func (m *Memory) Get(_ context.Context, playerID, gameType string) (rules.PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[key{playerID, gameType}]; ok {
		return e.stats, nil
	}
	return rules.PlayerStats{Rating: DefaultRating}, nil
}

func (m *Memory) Put(_ context.Context, playerID, gameType string, stats rules.PlayerStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{playerID, gameType}
	e, ok := m.entries[k]
	if !ok {
		e = &entry{}
		m.entries[k] = e
	}
	e.stats = stats
	e.wins = int(stats.WinRate * float64(stats.GamesRecorded))
	e.disconnects = int(stats.DisconnectRate * float64(stats.GamesRecorded))
	return nil
}

func (m *Memory) Record(_ context.Context, playerID, gameType string, o Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{playerID, gameType}
	e, ok := m.entries[k]
	if !ok {
		e = &entry{stats: rules.PlayerStats{Rating: DefaultRating}}
		m.entries[k] = e
	}
	e.stats.GamesRecorded++
	if o.Won {
		e.wins++
	}
	if o.Disconnected {
		e.disconnects++
	}
	e.stats.Rating += o.RatingDelta
	e.stats.WinRate = float64(e.wins) / float64(e.stats.GamesRecorded)
	e.stats.DisconnectRate = float64(e.disconnects) / float64(e.stats.GamesRecorded)
	return nil
}
