// Package match pairs queued players. Two flavors share one
// implementation: room matchmakers pair within a rating band, the
// global matchmaker pairs across everything and routes the pair to a
// fitting room. Queues are timestamp-ordered and scanned earliest
// first, both on join and on the periodic tick.
package match

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tablecenter/internal/config"
	"tablecenter/internal/engine/actor"
	"tablecenter/internal/engine/events"
	"tablecenter/internal/engine/rules"
)

// GlobalScope is the queue scope of the cross-room matchmaker.
const GlobalScope = "global"

type Ticket struct {
	PlayerID    string
	DisplayName string
	GameType    string
	Rating      int
	Prefs       rules.Preferences
	Actor       actor.Actor
	EnqueuedAt  time.Time
}

// Pair is an atomic match of two tickets; both left their queue the
// moment the pair was formed.
type Pair struct {
	MatchID  string
	GameType string
	A, B     Ticket
}

// Seater places a matched pair at a table. An error returns both
// tickets to the queue with their original timestamps.
type Seater interface {
	SeatPair(ctx context.Context, p Pair) error
}

type Matchmaker struct {
	scope      string
	band       rules.RatingRange
	gapCeiling int
	relaxAfter time.Duration
	tick       time.Duration

	membership *Membership
	seater     Seater

	mu      sync.Mutex
	tickets []*Ticket
}

// NewRoomMatchmaker builds the per-room queue. A zero band means an
// open room where any two tickets pair immediately.
func NewRoomMatchmaker(roomID string, band rules.RatingRange, cfg config.MatchConfig, ms *Membership, seater Seater) *Matchmaker {
	m := &Matchmaker{
		scope:      roomID,
		band:       band,
		gapCeiling: cfg.RatingGapCeiling,
		relaxAfter: cfg.RoomRelaxAfter,
		tick:       cfg.Tick,
		membership: ms,
		seater:     seater,
	}
	ms.register(m)
	return m
}

// NewGlobalMatchmaker builds the cross-room queue; its seater is
// expected to route the pair to a room fitting their average rating.
func NewGlobalMatchmaker(cfg config.MatchConfig, ms *Membership, seater Seater) *Matchmaker {
	m := &Matchmaker{
		scope:      GlobalScope,
		gapCeiling: cfg.RatingGapCeiling,
		relaxAfter: cfg.GlobalRelaxAfter,
		tick:       cfg.Tick,
		membership: ms,
		seater:     seater,
	}
	ms.register(m)
	return m
}

func (m *Matchmaker) Scope() string { return m.scope }

func (m *Matchmaker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

// Join enqueues a ticket and immediately attempts a pairing pass. A
// player already waiting elsewhere is purged from that queue first;
// the newest join always wins.
func (m *Matchmaker) Join(ctx context.Context, t Ticket) error {
	if prev, held := m.membership.take(t.PlayerID, m.scope); held && prev != nil {
		prev.evict(t.PlayerID)
	}
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}
	m.insert(&t)
	log.Info().Str("scope", m.scope).Str("player_id", t.PlayerID).Int("rating", t.Rating).Msg("queue joined")
	if t.Actor != nil {
		t.Actor.Emit(events.QueueJoined, map[string]any{"scope": m.scope})
	}
	m.pairPass(ctx, time.Now())
	return nil
}

// evict drops a ticket whose membership moved to another queue.
func (m *Matchmaker) evict(playerID string) {
	m.mu.Lock()
	var evicted *Ticket
	for i, t := range m.tickets {
		if t.PlayerID == playerID {
			evicted = t
			m.tickets = append(m.tickets[:i], m.tickets[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	if evicted == nil {
		return
	}
	log.Info().Str("scope", m.scope).Str("player_id", playerID).Msg("queue membership purged")
	if evicted.Actor != nil {
		evicted.Actor.Emit(events.QueueLeft, map[string]any{"scope": m.scope})
	}
}

func (m *Matchmaker) insert(t *Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = append(m.tickets, t)
	sort.SliceStable(m.tickets, func(i, j int) bool {
		return m.tickets[i].EnqueuedAt.Before(m.tickets[j].EnqueuedAt)
	})
}

func (m *Matchmaker) Leave(_ context.Context, playerID string) error {
	m.mu.Lock()
	var left *Ticket
	for i, t := range m.tickets {
		if t.PlayerID == playerID {
			left = t
			m.tickets = append(m.tickets[:i], m.tickets[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	if left == nil {
		return ErrNotQueued
	}
	m.membership.release(playerID, m.scope)
	log.Info().Str("scope", m.scope).Str("player_id", playerID).Msg("queue left")
	if left.Actor != nil {
		left.Actor.Emit(events.QueueLeft, map[string]any{"scope": m.scope})
	}
	return nil
}

// Tick runs one pairing pass; Run calls it on the configured interval.
func (m *Matchmaker) Tick(ctx context.Context, now time.Time) {
	m.pairPass(ctx, now)
}

func (m *Matchmaker) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.pairPass(ctx, now)
		}
	}
}

func (m *Matchmaker) compatible(a, b *Ticket, now time.Time) bool {
	if m.scope != GlobalScope && m.band.IsZero() {
		return true
	}
	if rules.CompatibleRatings(a.Rating, b.Rating, m.gapCeiling) {
		return true
	}
	return now.Sub(a.EnqueuedAt) >= m.relaxAfter || now.Sub(b.EnqueuedAt) >= m.relaxAfter
}

// pairPass scans earliest-first and extracts every compatible pair
// atomically, then hands the pairs to the seater outside the lock.
// Tickets whose membership moved to another queue since they were
// enqueued are dropped, never paired.
func (m *Matchmaker) pairPass(ctx context.Context, now time.Time) {
	var pairs []Pair
	m.mu.Lock()
	kept := m.tickets[:0]
	for _, t := range m.tickets {
		if m.membership.holds(t.PlayerID, m.scope) {
			kept = append(kept, t)
		}
	}
	m.tickets = kept
	for i := 0; i < len(m.tickets); {
		matched := false
		for j := i + 1; j < len(m.tickets); j++ {
			if m.tickets[i].GameType != m.tickets[j].GameType {
				continue
			}
			if !m.compatible(m.tickets[i], m.tickets[j], now) {
				continue
			}
			pairs = append(pairs, Pair{
				MatchID:  uuid.NewString(),
				GameType: m.tickets[i].GameType,
				A:        *m.tickets[i],
				B:        *m.tickets[j],
			})
			m.tickets = append(m.tickets[:j], m.tickets[j+1:]...)
			m.tickets = append(m.tickets[:i], m.tickets[i+1:]...)
			matched = true
			break
		}
		if !matched {
			i++
		}
	}
	m.mu.Unlock()

	for _, p := range pairs {
		m.membership.release(p.A.PlayerID, m.scope)
		m.membership.release(p.B.PlayerID, m.scope)
		m.deliver(ctx, p)
	}
}

func (m *Matchmaker) deliver(ctx context.Context, p Pair) {
	log.Info().
		Str("scope", m.scope).
		Str("match_id", p.MatchID).
		Str("player_a", p.A.PlayerID).
		Str("player_b", p.B.PlayerID).
		Msg("match found")
	for _, t := range []Ticket{p.A, p.B} {
		if t.Actor != nil {
			t.Actor.Emit(events.MatchFound, map[string]any{"match_id": p.MatchID})
		}
	}
	if err := m.seater.SeatPair(ctx, p); err != nil {
		log.Warn().Str("scope", m.scope).Str("match_id", p.MatchID).Err(err).Msg("seating failed, requeueing pair")
		for _, t := range []Ticket{p.A, p.B} {
			if t.Actor != nil {
				t.Actor.Emit(events.MatchFailed, map[string]any{"match_id": p.MatchID})
			}
			tt := t
			// The player may have queued elsewhere while the seating was
			// in flight; the newer membership wins.
			if _, held := m.membership.Scope(tt.PlayerID); held {
				continue
			}
			m.membership.take(tt.PlayerID, m.scope)
			m.insert(&tt)
		}
	}
}
