package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"tablecenter/internal/engine/events"
	"tablecenter/internal/engine/rules"
)

// StatusReport is a client's view of its table state, as carried on a
// periodic heartbeat.
type StatusReport struct {
	PlayerID string
	Observed rules.Status
}

// SyncDirective records a forced resync issued to one occupant.
type SyncDirective struct {
	PlayerID string
	Target   rules.Status
}

// Reconcile compares client-observed states against the server state. A
// client one legal transition behind will catch up on the next
// broadcast; anything else gets a targeted force sync, never a
// table-wide one.
func (o *Orchestrator) Reconcile(ctx context.Context, reports []StatusReport) ([]SyncDirective, error) {
	var directives []SyncDirective
	err := o.do(ctx, "reconcile", func(context.Context) error {
		server := o.tbl.Status
		for _, r := range reports {
			occ := o.tbl.Occupant(r.PlayerID)
			if occ == nil || occ.Actor == nil {
				continue
			}
			if r.Observed == server {
				continue
			}
			if rules.IsValidTransition(r.Observed, server) {
				log.Debug().
					Str("table_id", o.tbl.ID).
					Str("player_id", r.PlayerID).
					Str("observed", string(r.Observed)).
					Str("server", string(server)).
					Msg("client state lagging")
				continue
			}
			log.Warn().
				Str("table_id", o.tbl.ID).
				Str("player_id", r.PlayerID).
				Str("observed", string(r.Observed)).
				Str("server", string(server)).
				Msg("client state diverged, forcing sync")
			occ.Actor.Emit(events.ForceStateSync, o.tbl.Snapshot())
			directives = append(directives, SyncDirective{PlayerID: r.PlayerID, Target: server})
		}
		return nil
	})
	return directives, err
}
