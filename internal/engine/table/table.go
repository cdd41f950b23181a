// Package table holds the mutable state of one table session. A Session
// has no lock of its own: every mutation goes through the owning
// orchestrator's action queue, which serializes access.
package table

import (
	"sort"
	"time"

	"tablecenter/internal/engine/actor"
	"tablecenter/internal/engine/events"
	"tablecenter/internal/engine/gametype"
	"tablecenter/internal/engine/rules"
	"tablecenter/internal/ident"
)

type Occupant struct {
	PlayerID    string
	DisplayName string
	Actor       actor.Actor
	Ready       bool
	Seat        int
	JoinedAt    time.Time
	Active      bool
	AIManaged   bool
	Rating      int
}

// OccupantData is everything needed to seat a player. The zero Prefs
// value means "no preference" throughout.
type OccupantData struct {
	PlayerID    string
	DisplayName string
	Actor       actor.Actor
	AIManaged   bool
	Rating      int
	Prefs       rules.Preferences
}

type Session struct {
	ID       string
	GameType gametype.Config
	Status   rules.Status
	Settings rules.Settings

	// FirstJoinAt is set when the first occupant of an empty table sits
	// down and cleared when the table empties; IsZombie keys off it.
	FirstJoinAt time.Time
	RoundEnded  bool

	occupants  []*Occupant
	spectators map[string]actor.Actor

	roundsPlayed  int
	readySignaled bool
	// rematchReady tracks the post-round opt-in independently of the
	// round-ended flag and of the live Ready display bits.
	rematchReady map[string]bool
}

func NewSession(cfg gametype.Config) *Session {
	return &Session{
		ID:           ident.NewID(),
		GameType:     cfg,
		Status:       rules.StatusIdle,
		spectators:   map[string]actor.Actor{},
		rematchReady: map[string]bool{},
	}
}

func (s *Session) OccupantCount() int { return len(s.occupants) }

func (s *Session) Occupant(playerID string) *Occupant {
	for _, o := range s.occupants {
		if o.PlayerID == playerID {
			return o
		}
	}
	return nil
}

// Occupants returns the seat-ordered occupant list. Callers must not
// mutate the returned occupants outside the owning orchestrator.
func (s *Session) Occupants() []*Occupant {
	out := make([]*Occupant, len(s.occupants))
	copy(out, s.occupants)
	return out
}

func (s *Session) occupiedSeats() []int {
	seats := make([]int, 0, len(s.occupants))
	for _, o := range s.occupants {
		seats = append(seats, o.Seat)
	}
	return seats
}

// AddOccupant seats a player. Capacity and duplicate checks run before
// any mutation; the very first occupant of an empty table establishes the
// table settings from their preferences.
func (s *Session) AddOccupant(data OccupantData) (int, error) {
	if len(s.occupants) >= s.GameType.MaxOccupants {
		return rules.NoSeat, ErrTableFull
	}
	if s.Occupant(data.PlayerID) != nil {
		return rules.NoSeat, ErrAlreadySeated
	}
	seat := rules.AssignSeat(s.GameType.SeatStrategy, s.occupiedSeats(), s.GameType.MaxOccupants)
	if seat == rules.NoSeat {
		return rules.NoSeat, ErrNoSeat
	}

	first := len(s.occupants) == 0
	s.occupants = append(s.occupants, &Occupant{
		PlayerID:    data.PlayerID,
		DisplayName: data.DisplayName,
		Actor:       data.Actor,
		Seat:        seat,
		JoinedAt:    time.Now(),
		Active:      true,
		AIManaged:   data.AIManaged,
		Rating:      data.Rating,
	})
	sort.Slice(s.occupants, func(i, j int) bool { return s.occupants[i].Seat < s.occupants[j].Seat })

	if first {
		s.Settings = rules.SettingsFromPreferences(data.Prefs)
		s.FirstJoinAt = time.Now()
	}
	s.Status = rules.StateAfterJoin(len(s.occupants), s.GameType.MaxOccupants)
	return seat, nil
}

// RemoveOccupant unseats a player and resets the table to defaults when
// it empties. The removed occupant is returned for event payloads.
func (s *Session) RemoveOccupant(playerID string) (*Occupant, error) {
	for i, o := range s.occupants {
		if o.PlayerID != playerID {
			continue
		}
		s.occupants = append(s.occupants[:i], s.occupants[i+1:]...)
		delete(s.rematchReady, playerID)
		s.Status = rules.StateAfterLeave(len(s.occupants), s.GameType.MaxOccupants)
		if len(s.occupants) == 0 {
			s.resetDefaults()
		}
		return o, nil
	}
	return nil, ErrNotSeated
}

func (s *Session) resetDefaults() {
	s.Settings = rules.Settings{}
	s.FirstJoinAt = time.Time{}
	s.RoundEnded = false
	s.roundsPlayed = 0
	s.readySignaled = false
	s.rematchReady = map[string]bool{}
	s.spectators = map[string]actor.Actor{}
	s.Status = rules.StatusIdle
}

// SetReady updates a player's readiness and reports the all-ready
// sentinel exactly once per false-to-true transition of the predicate.
// After a round has ended the signal lands in the rematch set instead.
func (s *Session) SetReady(playerID string, ready bool) (bool, error) {
	o := s.Occupant(playerID)
	if o == nil {
		return false, ErrNotSeated
	}
	o.Ready = ready
	if s.RoundEnded {
		if ready {
			s.rematchReady[playerID] = true
		} else {
			delete(s.rematchReady, playerID)
		}
	}
	if s.Status != rules.StatusPlaying {
		s.Status = rules.StateAfterCancelReady(len(s.occupants), s.GameType.MaxOccupants)
	}

	if !s.readyPredicate() {
		s.readySignaled = false
		return false, nil
	}
	if s.readySignaled {
		return false, nil
	}
	s.readySignaled = true
	return true, nil
}

func (s *Session) readyPredicate() bool {
	if len(s.occupants) < s.GameType.MinOccupants {
		return false
	}
	if s.RoundEnded {
		for _, o := range s.occupants {
			if !s.rematchReady[o.PlayerID] {
				return false
			}
		}
		return true
	}
	switch s.GameType.ReadyMode {
	case gametype.ReadyMinimum:
		n := 0
		for _, o := range s.occupants {
			if o.Active && o.Ready {
				n++
			}
		}
		return n >= s.GameType.MinReady
	default:
		for _, o := range s.occupants {
			if o.Active && !o.Ready {
				return false
			}
		}
		return true
	}
}

func (s *Session) AddSpectator(a actor.Actor) {
	s.spectators[a.ID()] = a
}

func (s *Session) RemoveSpectator(playerID string) {
	delete(s.spectators, playerID)
}

func (s *Session) Spectators() []actor.Actor {
	out := make([]actor.Actor, 0, len(s.spectators))
	for _, a := range s.spectators {
		out = append(out, a)
	}
	return out
}

// PromoteSpectator seats a spectator through the normal occupant path,
// valid only while a seat is open (mid-round substitution on >2-seat
// games relies on this).
func (s *Session) PromoteSpectator(playerID string, data OccupantData) (int, error) {
	a, ok := s.spectators[playerID]
	if !ok {
		return rules.NoSeat, ErrNotSpectating
	}
	data.PlayerID = playerID
	if data.Actor == nil {
		data.Actor = a
	}
	seat, err := s.AddOccupant(data)
	if err != nil {
		return seat, err
	}
	delete(s.spectators, playerID)
	return seat, nil
}

// MarkRoundStarted moves the table into playing through the legality
// table and resets the per-round bookkeeping.
func (s *Session) MarkRoundStarted() error {
	if !rules.IsValidTransition(s.Status, rules.StatusPlaying) {
		return ErrInvalidTransition
	}
	s.Status = rules.StatusPlaying
	s.RoundEnded = false
	s.readySignaled = false
	s.rematchReady = map[string]bool{}
	s.roundsPlayed++
	return nil
}

// MarkRoundEnded flags round end without leaving playing; readiness is
// untouched and the next round gates on the rematch set.
func (s *Session) MarkRoundEnded() {
	s.RoundEnded = true
	s.readySignaled = false
	s.rematchReady = map[string]bool{}
}

// ResetToIdle force-clears the table; used by zombie cleanup and the
// AI-grace expiry path.
func (s *Session) ResetToIdle() []*Occupant {
	removed := s.occupants
	s.occupants = nil
	s.resetDefaults()
	return removed
}

func (s *Session) RoundsPlayed() int { return s.roundsPlayed }

func (s *Session) FirstRound() bool { return s.roundsPlayed == 0 }

// IsZombie reports a table whose occupants sat down but never reached a
// round within the ceiling. A cleanup signal for the sweeper, not a
// self-triggered action.
func (s *Session) IsZombie(now time.Time, ceiling time.Duration) bool {
	if s.FirstJoinAt.IsZero() || s.Status == rules.StatusPlaying {
		return false
	}
	return now.Sub(s.FirstJoinAt) > ceiling
}

func (s *Session) HumanCount() int {
	n := 0
	for _, o := range s.occupants {
		if !o.AIManaged {
			n++
		}
	}
	return n
}

func (s *Session) AICount() int {
	return len(s.occupants) - s.HumanCount()
}

// Snapshot builds the fully normalized outbound view; slices are never
// nil and every field is populated.
func (s *Session) Snapshot() events.TableSnapshot {
	occupants := make([]events.OccupantView, 0, len(s.occupants))
	for _, o := range s.occupants {
		occupants = append(occupants, events.OccupantView{
			PlayerID:    o.PlayerID,
			DisplayName: o.DisplayName,
			Seat:        o.Seat,
			Ready:       o.Ready,
			Active:      o.Active,
			AIManaged:   o.AIManaged,
		})
	}
	spectators := make([]string, 0, len(s.spectators))
	for id := range s.spectators {
		spectators = append(spectators, id)
	}
	sort.Strings(spectators)
	return events.TableSnapshot{
		TableID:      s.ID,
		GameType:     s.GameType.ID,
		Status:       string(s.Status),
		MaxOccupants: s.GameType.MaxOccupants,
		Occupants:    occupants,
		Spectators:   spectators,
		Settings: events.SettingsView{
			BaseBet:           s.Settings.BaseBet,
			BetMin:            s.Settings.AcceptableBets.Min,
			BetMax:            s.Settings.AcceptableBets.Max,
			WinRateMin:        s.Settings.WinRateRange.Min,
			WinRateMax:        s.Settings.WinRateRange.Max,
			MaxDisconnectRate: s.Settings.MaxDisconnectRate,
			RatingMin:         s.Settings.RatingRange.Min,
			RatingMax:         s.Settings.RatingRange.Max,
		},
		RoundEnded: s.RoundEnded,
	}
}
