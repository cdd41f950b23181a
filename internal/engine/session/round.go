package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"tablecenter/internal/engine/ai"
	"tablecenter/internal/engine/events"
	"tablecenter/internal/engine/rules"
	"tablecenter/internal/engine/stat"
	"tablecenter/internal/engine/table"
)

// readyWindow is the game type's window when it states one, otherwise
// the engine default.
func (o *Orchestrator) readyWindow() time.Duration {
	if w := o.tbl.GameType.ReadyWindow; w > 0 {
		return w
	}
	return o.cfg.ReadyWindow
}

// startReadyWindow opens the ready check once the table fills. Expiry is
// informational: occupants keep their seats and the check stays open.
func (o *Orchestrator) startReadyWindow() {
	if o.tbl.Status != rules.StatusMatching || o.timers.armed(timerReadyWindow) {
		return
	}
	window := o.readyWindow()
	deadline := time.Now().Add(window)
	o.armTimer(timerReadyWindow, window, func(context.Context) error {
		log.Info().Str("table_id", o.tbl.ID).Msg("ready window expired")
		o.emitAll(events.ReadyCheckTimeout, map[string]any{"table_id": o.tbl.ID})
		return nil
	})
	o.emitAll(events.ReadyCheckStarted, map[string]any{
		"table_id": o.tbl.ID,
		"deadline": deadline.UTC(),
	})
}

// countdownStep emits one tick per second down to zero, then starts the
// round. Only the first round of a pairing gets the countdown.
func (o *Orchestrator) countdownStep(ctx context.Context, n int) error {
	if n <= 0 {
		return o.startRound(ctx)
	}
	o.emitAll(events.CountdownTick, map[string]any{"seconds_left": n})
	o.armTimer(timerCountdown, o.countdownTick, func(ctx context.Context) error {
		return o.countdownStep(ctx, n-1)
	})
	return nil
}

// startRound flips the table to playing and hands the session to the
// round initializer before the playing snapshot goes out.
func (o *Orchestrator) startRound(ctx context.Context) error {
	if err := o.tbl.MarkRoundStarted(); err != nil {
		return err
	}
	o.forfeitFired = false
	o.timers.cancel(timerReadyWindow)
	if err := o.rounds.StartRound(ctx, o.tbl); err != nil {
		log.Error().Str("table_id", o.tbl.ID).Err(err).Msg("round initializer failed, resetting table")
		o.forceReset("round_init_failed")
		return err
	}
	if rt := o.tbl.GameType.RoundTimeout; rt > 0 {
		o.armRoundWatchdog(rt)
	}
	log.Info().Str("table_id", o.tbl.ID).Int("round", o.tbl.RoundsPlayed()).Msg("round started")
	o.emitAll(events.RoundStarted, map[string]any{"round": o.tbl.RoundsPlayed()})
	o.broadcast()
	return nil
}

// armRoundWatchdog force-settles a round the game layer never reports
// on. The round ends with no winner; nobody's record is touched.
func (o *Orchestrator) armRoundWatchdog(timeout time.Duration) {
	o.armTimer(timerRound, timeout, func(ctx context.Context) error {
		if o.tbl.Status != rules.StatusPlaying || o.tbl.RoundEnded {
			return ErrStaleAction
		}
		log.Warn().Str("table_id", o.tbl.ID).Dur("timeout", timeout).Msg("round timed out, settling without a winner")
		return o.roundEnd(ctx, RoundResult{})
	})
}

// OnRoundEnd is the game layer's settlement callback.
func (o *Orchestrator) OnRoundEnd(ctx context.Context, result RoundResult) error {
	return o.do(ctx, "round_end", func(ctx context.Context) error {
		return o.roundEnd(ctx, result)
	})
}

func (o *Orchestrator) roundEnd(ctx context.Context, result RoundResult) error {
	if o.tbl.Status != rules.StatusPlaying || o.tbl.RoundEnded {
		return ErrStaleAction
	}
	o.tbl.MarkRoundEnded()
	o.timers.cancel(timerRound)
	log.Info().Str("table_id", o.tbl.ID).Str("winner_id", result.WinnerID).Msg("round ended")
	o.emitAll(events.RoundEnded, map[string]any{"winner_id": result.WinnerID})

	if result.WinnerID != "" {
		for _, occ := range o.tbl.Occupants() {
			if occ.AIManaged {
				continue
			}
			won := occ.PlayerID == result.WinnerID
			delta := result.RatingDelta
			if !won {
				delta = -delta
			}
			_ = o.stats.Record(ctx, occ.PlayerID, o.tbl.GameType.ID, stat.Outcome{Won: won, RatingDelta: delta})
		}
	}

	for _, occ := range o.tbl.Occupants() {
		if !occ.AIManaged {
			continue
		}
		p := o.aiProfiles[occ.PlayerID]
		if o.aic.RoundEnded(o.tbl.ID, p, occ.PlayerID == result.WinnerID) == ai.DecisionLeave {
			_ = o.leave(ctx, occ.PlayerID, false)
		} else {
			o.armAIReady(occ.PlayerID)
		}
	}
	o.broadcast()
	return nil
}

// armAIFallback schedules the lone-occupant AI opponent with jitter so
// fallbacks across tables don't fire in lockstep.
func (o *Orchestrator) armAIFallback() {
	if o.timers.armed(timerAIFallback) {
		return
	}
	d := o.cfg.AIFallbackBase
	if o.cfg.AIFallbackJitter > 0 {
		d += time.Duration(o.rnd.Int63n(int64(o.cfg.AIFallbackJitter)))
	}
	o.armTimer(timerAIFallback, d, o.seatFallbackAI)
}

func (o *Orchestrator) seatFallbackAI(ctx context.Context) error {
	if o.tbl.OccupantCount() != 1 || o.tbl.HumanCount() != 1 {
		return ErrStaleAction
	}
	band := o.tbl.Settings.RatingRange
	if band.IsZero() {
		r := o.tbl.Occupants()[0].Rating
		band = rules.RatingRange{Min: r - o.cfg.AIRatingGap, Max: r + o.cfg.AIRatingGap}
	}
	p, ok := o.aic.RequestOpponent(band)
	if !ok {
		// Nothing compatible right now; retry on the same schedule.
		log.Debug().Str("table_id", o.tbl.ID).Msg("no ai opponent available")
		o.armAIFallback()
		return nil
	}
	name := p.DisplayName
	if name == "" {
		name = p.ID
	}
	o.aiProfiles[p.ID] = p
	if _, err := o.join(ctx, table.OccupantData{
		PlayerID:    p.ID,
		DisplayName: name,
		Actor:       ai.NewManagedActor(p),
		AIManaged:   true,
		Rating:      p.Rating,
	}); err != nil {
		delete(o.aiProfiles, p.ID)
		o.aic.SessionClosed(o.tbl.ID, p)
		return err
	}
	o.aic.SessionStarted(o.tbl.ID, p)
	o.armAIReady(p.ID)
	return nil
}

// armAIReady readies a seated AI after a humanlike pause.
func (o *Orchestrator) armAIReady(playerID string) {
	d := o.cfg.AIReadyMin
	if span := o.cfg.AIReadyMax - o.cfg.AIReadyMin; span > 0 {
		d += time.Duration(o.rnd.Int63n(int64(span)))
	}
	o.armTimer(timerAIReady, d, func(ctx context.Context) error {
		occ := o.tbl.Occupant(playerID)
		if occ == nil || !occ.AIManaged {
			return ErrStaleAction
		}
		return o.setReady(ctx, playerID, true)
	})
}

// forceReset evicts everyone and returns the table to defaults. Used by
// zombie cleanup, the AI grace expiry and failed round initialization.
func (o *Orchestrator) forceReset(reason string) {
	o.timers.cancelAll()
	o.emitAll(events.TableReset, map[string]any{"table_id": o.tbl.ID, "reason": reason})
	removed := o.tbl.ResetToIdle()
	for _, occ := range removed {
		if !occ.AIManaged {
			continue
		}
		if p, ok := o.aiProfiles[occ.PlayerID]; ok {
			delete(o.aiProfiles, occ.PlayerID)
			o.aic.SessionClosed(o.tbl.ID, p)
		}
	}
	o.forfeitFired = false
	log.Warn().Str("table_id", o.tbl.ID).Str("reason", reason).Int("evicted", len(removed)).Msg("table force reset")
}

// SweepIfZombie resets a table whose occupants never reached a round
// within the ceiling. Runs through the queue like everything else.
func (o *Orchestrator) SweepIfZombie(ctx context.Context, now time.Time) (bool, error) {
	swept := false
	err := o.do(ctx, "zombie_sweep", func(ctx context.Context) error {
		if !o.tbl.IsZombie(now, o.cfg.ZombieCeiling) {
			return nil
		}
		swept = true
		o.forceReset("zombie")
		return nil
	})
	return swept, err
}
