package session

import (
	"context"
	"time"
)

type timerKind string

const (
	timerReadyWindow timerKind = "ready_window"
	timerCountdown   timerKind = "countdown"
	timerRound       timerKind = "round"
	timerAIFallback  timerKind = "ai_fallback"
	timerAIReady     timerKind = "ai_ready"
	timerAIGrace     timerKind = "ai_grace"
)

// timerTable tracks at most one outstanding timer per kind. Arming and
// canceling happen on the consumer goroutine; the AfterFunc body only
// re-submits to the action queue, and the queued action re-checks the
// epoch, so a timer canceled between firing and processing is a no-op.
type timerTable struct {
	epochs map[timerKind]uint64
	timers map[timerKind]*time.Timer
}

func newTimerTable() *timerTable {
	return &timerTable{
		epochs: map[timerKind]uint64{},
		timers: map[timerKind]*time.Timer{},
	}
}

func (t *timerTable) armed(kind timerKind) bool {
	_, ok := t.timers[kind]
	return ok
}

func (t *timerTable) cancel(kind timerKind) {
	if tm, ok := t.timers[kind]; ok {
		tm.Stop()
		delete(t.timers, kind)
	}
	t.epochs[kind]++
}

func (t *timerTable) cancelAll() {
	for kind := range t.timers {
		t.cancel(kind)
	}
}

// armTimer replaces any outstanding timer of the same kind. The fire
// callback runs as a regular queued action.
func (o *Orchestrator) armTimer(kind timerKind, d time.Duration, fire func(ctx context.Context) error) {
	o.timers.cancel(kind)
	epoch := o.timers.epochs[kind]
	o.timers.timers[kind] = time.AfterFunc(d, func() {
		o.enqueue("timer_"+string(kind), func(ctx context.Context) error {
			if o.timers.epochs[kind] != epoch {
				return ErrStaleAction
			}
			delete(o.timers.timers, kind)
			return fire(ctx)
		})
	})
}
