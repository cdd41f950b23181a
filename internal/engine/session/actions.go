package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"tablecenter/internal/engine/actor"
	"tablecenter/internal/engine/ai"
	"tablecenter/internal/engine/events"
	"tablecenter/internal/engine/rules"
	"tablecenter/internal/engine/stat"
	"tablecenter/internal/engine/table"
)

// Join seats a player. Criteria gates run in the room layer before this
// is called; here only capacity and duplicate checks apply.
func (o *Orchestrator) Join(ctx context.Context, data table.OccupantData) (int, error) {
	seat := rules.NoSeat
	err := o.do(ctx, "join", func(ctx context.Context) error {
		var err error
		seat, err = o.join(ctx, data)
		return err
	})
	return seat, err
}

// JoinChecked runs the join criteria gates against the table settings
// inside the action queue, so the check and the seating are atomic.
func (o *Orchestrator) JoinChecked(ctx context.Context, data table.OccupantData, stats rules.PlayerStats) (int, error) {
	seat := rules.NoSeat
	err := o.do(ctx, "join_checked", func(ctx context.Context) error {
		if o.tbl.OccupantCount() >= o.tbl.GameType.MaxOccupants {
			return table.ErrTableFull
		}
		if err := rules.CheckJoinCriteria(stats, data.Prefs, o.tbl.Settings, o.tbl.OccupantCount() == 0); err != nil {
			return err
		}
		var err error
		seat, err = o.join(ctx, data)
		return err
	})
	return seat, err
}

func (o *Orchestrator) join(ctx context.Context, data table.OccupantData) (int, error) {
	seat, err := o.tbl.AddOccupant(data)
	if err != nil {
		return seat, err
	}
	log.Info().
		Str("table_id", o.tbl.ID).
		Str("player_id", data.PlayerID).
		Int("seat", seat).
		Bool("ai", data.AIManaged).
		Msg("occupant joined")
	o.emitAll(events.OccupantJoined, map[string]any{"player_id": data.PlayerID, "seat": seat})
	o.broadcast()
	o.afterOccupancyChange(ctx)
	return seat, nil
}

// afterOccupancyChange re-evaluates the occupancy-driven timers after
// any seat mutation.
func (o *Orchestrator) afterOccupancyChange(ctx context.Context) {
	switch {
	case o.tbl.OccupantCount() >= o.tbl.GameType.MaxOccupants:
		o.timers.cancel(timerAIFallback)
		o.startReadyWindow()
	case o.tbl.OccupantCount() == 1 && o.tbl.HumanCount() == 1:
		o.cancelReadyCheck()
		o.armAIFallback()
	default:
		o.timers.cancel(timerAIFallback)
		o.cancelReadyCheck()
	}
}

func (o *Orchestrator) cancelReadyCheck() {
	if o.timers.armed(timerReadyWindow) {
		o.timers.cancel(timerReadyWindow)
		o.emitAll(events.ReadyCheckCanceled, map[string]any{"table_id": o.tbl.ID})
	}
	o.timers.cancel(timerCountdown)
}

func (o *Orchestrator) SetReady(ctx context.Context, playerID string, ready bool) error {
	return o.do(ctx, "set_ready", func(ctx context.Context) error {
		return o.setReady(ctx, playerID, ready)
	})
}

func (o *Orchestrator) setReady(ctx context.Context, playerID string, ready bool) error {
	allReady, err := o.tbl.SetReady(playerID, ready)
	if err != nil {
		if errors.Is(err, table.ErrNotSeated) {
			return ErrStaleAction
		}
		return err
	}
	if !ready && o.timers.armed(timerCountdown) {
		// Backing out during the countdown aborts it and re-opens the
		// ready window.
		o.timers.cancel(timerCountdown)
		o.startReadyWindow()
	}
	o.broadcast()
	if !allReady {
		return nil
	}
	if o.timers.armed(timerReadyWindow) {
		o.timers.cancel(timerReadyWindow)
		o.emitAll(events.ReadyCheckCanceled, map[string]any{"table_id": o.tbl.ID})
	}
	if o.tbl.FirstRound() {
		return o.countdownStep(ctx, o.cfg.CountdownSeconds)
	}
	return o.startRound(ctx)
}

func (o *Orchestrator) Leave(ctx context.Context, playerID string) error {
	return o.do(ctx, "leave", func(ctx context.Context) error {
		return o.leave(ctx, playerID, false)
	})
}

// Disconnect is a leave that also counts against the player's
// disconnect rate.
func (o *Orchestrator) Disconnect(ctx context.Context, playerID string) error {
	return o.do(ctx, "disconnect", func(ctx context.Context) error {
		return o.leave(ctx, playerID, true)
	})
}

func (o *Orchestrator) leave(ctx context.Context, playerID string, disconnected bool) error {
	forfeit := o.tbl.Status == rules.StatusPlaying && !o.tbl.RoundEnded && !o.forfeitFired
	removed, err := o.tbl.RemoveOccupant(playerID)
	if err != nil {
		return ErrStaleAction
	}

	if forfeit {
		o.forfeitFired = true
		o.tbl.MarkRoundEnded()
		beneficiary := ""
		if rest := o.tbl.Occupants(); len(rest) > 0 {
			beneficiary = rest[0].PlayerID
		}
		o.rounds.Forfeit(ctx, o.tbl.ID, playerID, beneficiary)
		o.emitAll(events.Forfeit, map[string]any{"leaver_id": playerID, "beneficiary_id": beneficiary})
		log.Info().
			Str("table_id", o.tbl.ID).
			Str("leaver_id", playerID).
			Str("beneficiary_id", beneficiary).
			Msg("round forfeited")
		if !removed.AIManaged {
			_ = o.stats.Record(ctx, playerID, o.tbl.GameType.ID, stat.Outcome{Disconnected: disconnected})
		}
		if b := o.tbl.Occupant(beneficiary); b != nil && !b.AIManaged {
			_ = o.stats.Record(ctx, beneficiary, o.tbl.GameType.ID, stat.Outcome{Won: true})
		}
	} else if disconnected && !removed.AIManaged {
		_ = o.stats.Record(ctx, playerID, o.tbl.GameType.ID, stat.Outcome{Disconnected: true})
	}

	if removed.AIManaged {
		if p, ok := o.aiProfiles[playerID]; ok {
			delete(o.aiProfiles, playerID)
			o.aic.SessionClosed(o.tbl.ID, p)
		}
	}
	log.Info().Str("table_id", o.tbl.ID).Str("player_id", playerID).Msg("occupant left")
	o.emitAll(events.OccupantLeft, map[string]any{"player_id": playerID})
	o.broadcast()

	if o.tbl.OccupantCount() == 0 {
		o.timers.cancelAll()
		o.forfeitFired = false
		return nil
	}
	if o.tbl.HumanCount() == 0 {
		o.humansGone(ctx)
		return nil
	}
	o.afterOccupancyChange(ctx)
	return nil
}

// humansGone runs once the last human is out: every seated AI gets a
// voluntary-leave decision, and any that stay are force-cleared after
// the grace period.
func (o *Orchestrator) humansGone(ctx context.Context) {
	for _, occ := range o.tbl.Occupants() {
		if !occ.AIManaged {
			continue
		}
		p := o.aiProfiles[occ.PlayerID]
		if o.aic.HumanLeft(o.tbl.ID, p) == ai.DecisionLeave {
			_ = o.leave(ctx, occ.PlayerID, false)
		}
	}
	if o.tbl.OccupantCount() == 0 {
		return
	}
	o.armTimer(timerAIGrace, o.cfg.AIGrace, func(context.Context) error {
		if o.tbl.HumanCount() > 0 || o.tbl.OccupantCount() == 0 {
			return ErrStaleAction
		}
		o.forceReset("ai_grace_expired")
		return nil
	})
}

func (o *Orchestrator) Watch(ctx context.Context, a actor.Actor) error {
	return o.do(ctx, "watch", func(context.Context) error {
		o.tbl.AddSpectator(a)
		a.Emit(events.Snapshot, o.tbl.Snapshot())
		return nil
	})
}

func (o *Orchestrator) Unwatch(ctx context.Context, playerID string) error {
	return o.do(ctx, "unwatch", func(context.Context) error {
		o.tbl.RemoveSpectator(playerID)
		return nil
	})
}

// PromoteSpectator moves a watcher into an open seat.
func (o *Orchestrator) PromoteSpectator(ctx context.Context, playerID string, data table.OccupantData) (int, error) {
	seat := rules.NoSeat
	err := o.do(ctx, "promote_spectator", func(ctx context.Context) error {
		var err error
		seat, err = o.tbl.PromoteSpectator(playerID, data)
		if err != nil {
			return err
		}
		o.emitAll(events.OccupantJoined, map[string]any{"player_id": playerID, "seat": seat})
		o.broadcast()
		o.afterOccupancyChange(ctx)
		return nil
	})
	return seat, err
}
