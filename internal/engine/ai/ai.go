// Package ai is the AI-fallback collaborator seam. The engine asks it
// for a rating-compatible opponent profile when no human pairs up in
// time; the profile is then seated through the same occupant API as a
// human. Move selection lives outside this process entirely.
package ai

import "tablecenter/internal/engine/rules"

type Profile struct {
	ID          string
	DisplayName string
	Rating      int
}

type Decision int

const (
	DecisionStay Decision = iota
	DecisionLeave
)

type Collaborator interface {
	// RequestOpponent returns a free profile whose rating fits the band,
	// or false when none is available.
	RequestOpponent(band rules.RatingRange) (Profile, bool)
	// SessionStarted opens the session handle for a seated profile.
	SessionStarted(tableID string, p Profile)
	// HumanLeft is the collaborator's chance to leave voluntarily once
	// the last human is gone; DecisionStay triggers the forced-cleanup
	// grace path in the orchestrator.
	HumanLeft(tableID string, p Profile) Decision
	// RoundEnded decides leave-vs-rematch after a result.
	RoundEnded(tableID string, p Profile, won bool) Decision
	// SessionClosed releases the profile back to its owner.
	SessionClosed(tableID string, p Profile)
}

// ManagedActor is the actor handle behind an AI seat. Outbound events
// have no wire to travel, so emits are dropped.
type ManagedActor struct {
	profile Profile
}

func NewManagedActor(p Profile) *ManagedActor {
	return &ManagedActor{profile: p}
}

func (a *ManagedActor) ID() string { return a.profile.ID }

func (a *ManagedActor) Emit(string, any) {}
