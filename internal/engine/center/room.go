// Package center owns the table pools. A room is a fixed pool of
// orchestrated tables for one game type and rating band with its own
// matchmaking queue; the center routes globally matched pairs to rooms
// and sweeps zombie tables across all of them.
package center

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"tablecenter/internal/config"
	"tablecenter/internal/engine/ai"
	"tablecenter/internal/engine/gametype"
	"tablecenter/internal/engine/match"
	"tablecenter/internal/engine/rules"
	"tablecenter/internal/engine/session"
	"tablecenter/internal/engine/stat"
	"tablecenter/internal/engine/table"
	"tablecenter/internal/ident"
)

var (
	ErrRoomFull     = errors.New("room_full")
	ErrUnknownTable = errors.New("unknown_table")
)

type Room struct {
	ID       string
	GameType gametype.Config
	Band     rules.RatingRange

	stats  stat.Store
	tables []*session.Orchestrator
	mm     *match.Matchmaker
}

func NewRoom(gt gametype.Config, band rules.RatingRange, engCfg config.EngineConfig, matchCfg config.MatchConfig, ms *match.Membership, stats stat.Store, rounds session.RoundEngine, aic ai.Collaborator) *Room {
	r := &Room{
		ID:       ident.NewID(),
		GameType: gt,
		Band:     band,
		stats:    stats,
	}
	n := engCfg.TablesPerRoom
	if n <= 0 {
		n = 32
	}
	for i := 0; i < n; i++ {
		r.tables = append(r.tables, session.NewOrchestrator(engCfg, table.NewSession(gt), rounds, aic, stats))
	}
	r.mm = match.NewRoomMatchmaker(r.ID, band, matchCfg, ms, r)
	log.Info().
		Str("room_id", r.ID).
		Str("game_type", gt.ID).
		Int("tables", n).
		Int("band_min", band.Min).
		Int("band_max", band.Max).
		Msg("room opened")
	return r
}

func (r *Room) Matchmaker() *match.Matchmaker { return r.mm }

func (r *Room) Tables() []*session.Orchestrator {
	out := make([]*session.Orchestrator, len(r.tables))
	copy(out, r.tables)
	return out
}

func (r *Room) Table(tableID string) (*session.Orchestrator, error) {
	for _, o := range r.tables {
		if o.TableID() == tableID {
			return o, nil
		}
	}
	return nil, ErrUnknownTable
}

// Join seats a walk-in player. The room's rating band is container
// admission, checked once before any table is considered; the per-table
// gates (capacity, duplicate, bet ranges, win rate, disconnect rate,
// table band) run in order inside the chosen table's queue. Tables with
// one occupant waiting are tried before empty ones so walk-ins pair up
// instead of spreading out.
func (r *Room) Join(ctx context.Context, data table.OccupantData) (string, int, error) {
	stats, err := r.stats.Get(ctx, data.PlayerID, r.GameType.ID)
	if err != nil {
		return "", rules.NoSeat, err
	}
	data.Rating = stats.Rating
	if !r.Band.Contains(stats.Rating) {
		return "", rules.NoSeat, &rules.CriteriaError{
			Reason: fmt.Sprintf("rating %d outside room band [%d, %d]", stats.Rating, r.Band.Min, r.Band.Max),
		}
	}

	var lastErr error
	for _, wantOccupied := range []bool{true, false} {
		for _, o := range r.tables {
			snap, err := o.Snapshot(ctx)
			if err != nil {
				return "", rules.NoSeat, err
			}
			occupied := len(snap.Occupants) > 0
			if occupied != wantOccupied || len(snap.Occupants) >= snap.MaxOccupants {
				continue
			}
			seat, err := o.JoinChecked(ctx, data, stats)
			if err != nil {
				lastErr = err
				continue
			}
			return o.TableID(), seat, nil
		}
	}
	if lastErr != nil {
		return "", rules.NoSeat, lastErr
	}
	return "", rules.NoSeat, ErrRoomFull
}

// JoinTable seats a player at one specific table.
func (r *Room) JoinTable(ctx context.Context, tableID string, data table.OccupantData) (int, error) {
	o, err := r.Table(tableID)
	if err != nil {
		return rules.NoSeat, err
	}
	stats, err := r.stats.Get(ctx, data.PlayerID, r.GameType.ID)
	if err != nil {
		return rules.NoSeat, err
	}
	data.Rating = stats.Rating
	return o.JoinChecked(ctx, data, stats)
}

// SeatPair places a matched pair at an empty table. Matched players
// already passed each other's criteria in the queue, so only capacity
// gates apply; a half-seated pair is rolled back.
func (r *Room) SeatPair(ctx context.Context, p match.Pair) error {
	for _, o := range r.tables {
		snap, err := o.Snapshot(ctx)
		if err != nil {
			return err
		}
		if len(snap.Occupants) != 0 {
			continue
		}
		if _, err := o.Join(ctx, pairOccupant(p.A)); err != nil {
			continue
		}
		if _, err := o.Join(ctx, pairOccupant(p.B)); err != nil {
			_ = o.Leave(ctx, p.A.PlayerID)
			continue
		}
		log.Info().
			Str("room_id", r.ID).
			Str("match_id", p.MatchID).
			Str("table_id", o.TableID()).
			Msg("matched pair seated")
		return nil
	}
	return ErrRoomFull
}

func pairOccupant(t match.Ticket) table.OccupantData {
	return table.OccupantData{
		PlayerID:    t.PlayerID,
		DisplayName: t.DisplayName,
		Actor:       t.Actor,
		Rating:      t.Rating,
		Prefs:       t.Prefs,
	}
}

func (r *Room) Stop() {
	for _, o := range r.tables {
		o.Stop()
	}
}
