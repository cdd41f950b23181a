// Package session drives one table's behavior. Every externally
// triggered action is funneled through a per-table FIFO queue with a
// single consumer, so mutations on one table never interleave while
// distinct tables run fully in parallel.
package session

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"tablecenter/internal/config"
	"tablecenter/internal/engine/ai"
	"tablecenter/internal/engine/events"
	"tablecenter/internal/engine/stat"
	"tablecenter/internal/engine/table"
)

// ErrStaleAction marks a queued action that arrived after the table was
// emptied or reset under it. Consumers treat it as a no-op.
var ErrStaleAction = errors.New("stale_action")

var ErrStopped = errors.New("orchestrator_stopped")

// RoundEngine is the game-specific collaborator: it initializes a round
// before the playing snapshot goes out and receives forfeit
// notifications. Move legality and win detection live behind it.
type RoundEngine interface {
	StartRound(ctx context.Context, s *table.Session) error
	Forfeit(ctx context.Context, tableID, leaverID, beneficiaryID string)
}

// NopRounds is the round engine for deployments where the game layer
// runs out of process and reports settlements through OnRoundEnd.
type NopRounds struct{}

func (NopRounds) StartRound(context.Context, *table.Session) error { return nil }

func (NopRounds) Forfeit(context.Context, string, string, string) {}

// RoundResult is what the game layer reports when a round settles.
type RoundResult struct {
	WinnerID    string
	RatingDelta int
}

type Orchestrator struct {
	cfg    config.EngineConfig
	tbl    *table.Session
	rounds RoundEngine
	aic    ai.Collaborator
	stats  stat.Store

	actions chan queuedAction
	quit    chan struct{}
	stopped chan struct{}

	// Everything below is owned by the consumer goroutine.
	timers        *timerTable
	rnd           *rand.Rand
	aiProfiles    map[string]ai.Profile
	forfeitFired  bool
	countdownTick time.Duration
}

type queuedAction struct {
	name string
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

func NewOrchestrator(cfg config.EngineConfig, tbl *table.Session, rounds RoundEngine, aic ai.Collaborator, stats stat.Store) *Orchestrator {
	depth := cfg.ActionQueueDepth
	if depth <= 0 {
		depth = 64
	}
	o := &Orchestrator{
		cfg:        cfg,
		tbl:        tbl,
		rounds:     rounds,
		aic:        aic,
		stats:      stats,
		actions:    make(chan queuedAction, depth),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
		timers:        newTimerTable(),
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
		aiProfiles:    map[string]ai.Profile{},
		countdownTick: time.Second,
	}
	go o.run()
	return o
}

func (o *Orchestrator) TableID() string { return o.tbl.ID }

func (o *Orchestrator) run() {
	defer close(o.stopped)
	for {
		select {
		case <-o.quit:
			o.timers.cancelAll()
			return
		case a := <-o.actions:
			err := a.fn(a.ctx)
			if err != nil && !errors.Is(err, ErrStaleAction) {
				log.Debug().Str("table_id", o.tbl.ID).Str("action", a.name).Err(err).Msg("table action rejected")
			}
			if a.done != nil {
				a.done <- err
			}
			// Settle so the resulting broadcast is observed before the
			// next mutation starts.
			if o.cfg.SettleDelay > 0 {
				time.Sleep(o.cfg.SettleDelay)
			}
		}
	}
}

// enqueue submits without waiting; timer callbacks use it so a firing
// timer can never deadlock the consumer.
func (o *Orchestrator) enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case o.actions <- queuedAction{name: name, ctx: context.Background(), fn: fn}:
	case <-o.quit:
	}
}

// do submits and waits for the action to fully resolve, preserving FIFO
// order for external callers. Must not be called from inside an action.
func (o *Orchestrator) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	select {
	case o.actions <- queuedAction{name: name, ctx: ctx, fn: fn, done: done}:
	case <-o.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-o.stopped:
		return ErrStopped
	}
}

func (o *Orchestrator) Stop() {
	select {
	case <-o.quit:
	default:
		close(o.quit)
	}
	<-o.stopped
}

// broadcast emits the current normalized snapshot to every occupant and
// spectator. Runs inside the consumer.
func (o *Orchestrator) broadcast() {
	snap := o.tbl.Snapshot()
	for _, occ := range o.tbl.Occupants() {
		if occ.Actor != nil {
			occ.Actor.Emit(events.Snapshot, snap)
		}
	}
	for _, sp := range o.tbl.Spectators() {
		sp.Emit(events.Snapshot, snap)
	}
}

func (o *Orchestrator) emitAll(event string, data any) {
	for _, occ := range o.tbl.Occupants() {
		if occ.Actor != nil {
			occ.Actor.Emit(event, data)
		}
	}
	for _, sp := range o.tbl.Spectators() {
		sp.Emit(event, data)
	}
}

// Snapshot returns the table's current outbound view through the queue,
// so it never observes a half-applied action.
func (o *Orchestrator) Snapshot(ctx context.Context) (events.TableSnapshot, error) {
	var snap events.TableSnapshot
	err := o.do(ctx, "snapshot", func(context.Context) error {
		snap = o.tbl.Snapshot()
		return nil
	})
	return snap, err
}
