package center

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"tablecenter/internal/config"
	"tablecenter/internal/engine/ai"
	"tablecenter/internal/engine/gametype"
	"tablecenter/internal/engine/match"
	"tablecenter/internal/engine/rules"
	"tablecenter/internal/engine/session"
	"tablecenter/internal/engine/stat"
)

var ErrNoRoom = errors.New("no_room")

// Center is the top-level container: rooms grouped by game type, the
// shared queue membership, the global matchmaker and the zombie
// sweeper.
type Center struct {
	engCfg   config.EngineConfig
	matchCfg config.MatchConfig
	registry *gametype.Registry
	stats    stat.Store
	rounds   session.RoundEngine
	aic      ai.Collaborator

	membership *match.Membership
	global     *match.Matchmaker

	mu    sync.RWMutex
	rooms map[string][]*Room
}

func New(engCfg config.EngineConfig, matchCfg config.MatchConfig, registry *gametype.Registry, stats stat.Store, rounds session.RoundEngine, aic ai.Collaborator) *Center {
	c := &Center{
		engCfg:     engCfg,
		matchCfg:   matchCfg,
		registry:   registry,
		stats:      stats,
		rounds:     rounds,
		aic:        aic,
		membership: match.NewMembership(),
		rooms:      map[string][]*Room{},
	}
	c.global = match.NewGlobalMatchmaker(matchCfg, c.membership, c)
	return c
}

func (c *Center) Membership() *match.Membership { return c.membership }

func (c *Center) Global() *match.Matchmaker { return c.global }

// AddRoom opens a room for a registered game type. Rooms of one game
// type stay ordered by band floor so routing walks them low to high.
func (c *Center) AddRoom(gameTypeID string, band rules.RatingRange) (*Room, error) {
	gt, err := c.registry.Get(gameTypeID)
	if err != nil {
		return nil, err
	}
	r := NewRoom(gt, band, c.engCfg, c.matchCfg, c.membership, c.stats, c.rounds, c.aic)
	c.mu.Lock()
	c.rooms[gameTypeID] = append(c.rooms[gameTypeID], r)
	sort.SliceStable(c.rooms[gameTypeID], func(i, j int) bool {
		return c.rooms[gameTypeID][i].Band.Min < c.rooms[gameTypeID][j].Band.Min
	})
	c.mu.Unlock()
	return r, nil
}

func (c *Center) Room(roomID string) (*Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rs := range c.rooms {
		for _, r := range rs {
			if r.ID == roomID {
				return r, nil
			}
		}
	}
	return nil, ErrNoRoom
}

func (c *Center) Rooms(gameTypeID string) []*Room {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Room(nil), c.rooms[gameTypeID]...)
}

// SeatPair is the global matchmaker's seater: the pair goes to the
// first room of its game type whose band covers the pair's average
// rating, falling back to any room with a free table.
func (c *Center) SeatPair(ctx context.Context, p match.Pair) error {
	avg := (p.A.Rating + p.B.Rating) / 2
	rooms := c.Rooms(p.GameType)
	if len(rooms) == 0 {
		return ErrNoRoom
	}
	for _, r := range rooms {
		if !r.Band.Contains(avg) {
			continue
		}
		if err := r.SeatPair(ctx, p); err == nil {
			return nil
		}
	}
	for _, r := range rooms {
		if err := r.SeatPair(ctx, p); err == nil {
			return nil
		}
	}
	return ErrRoomFull
}

// QueueGlobal enqueues a player on the cross-room matchmaker with their
// recorded rating.
func (c *Center) QueueGlobal(ctx context.Context, t match.Ticket) error {
	stats, err := c.stats.Get(ctx, t.PlayerID, t.GameType)
	if err != nil {
		return err
	}
	t.Rating = stats.Rating
	return c.global.Join(ctx, t)
}

// StartSweeper runs the zombie sweep across every table of every room
// until the context ends.
func (c *Center) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.engCfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				c.Sweep(ctx, now)
			}
		}
	}()
}

// Sweep runs one pass and reports how many tables were reset.
func (c *Center) Sweep(ctx context.Context, now time.Time) int {
	c.mu.RLock()
	var all []*Room
	for _, rs := range c.rooms {
		all = append(all, rs...)
	}
	c.mu.RUnlock()

	swept := 0
	for _, r := range all {
		for _, o := range r.Tables() {
			ok, err := o.SweepIfZombie(ctx, now)
			if err != nil {
				log.Warn().Str("table_id", o.TableID()).Err(err).Msg("zombie sweep failed")
				continue
			}
			if ok {
				swept++
			}
		}
	}
	if swept > 0 {
		log.Info().Int("tables", swept).Msg("zombie tables reset")
	}
	return swept
}

// StartMatchmakers runs the periodic pairing passes for the global
// queue and every room queue.
func (c *Center) StartMatchmakers(ctx context.Context) {
	go c.global.Run(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rs := range c.rooms {
		for _, r := range rs {
			go r.Matchmaker().Run(ctx)
		}
	}
}

func (c *Center) Stop() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rs := range c.rooms {
		for _, r := range rs {
			r.Stop()
		}
	}
}
