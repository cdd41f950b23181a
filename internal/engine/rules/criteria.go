package rules

import "fmt"

// MinDisconnectSample is the number of recorded games below which the
// disconnect-rate gate is skipped; a fresh account cannot fail it.
const MinDisconnectSample = 20

type BetRange struct {
	Min int64
	Max int64
}

func (r BetRange) IsZero() bool { return r.Min == 0 && r.Max == 0 }

func (r BetRange) Contains(v int64) bool {
	if r.IsZero() {
		return true
	}
	return v >= r.Min && v <= r.Max
}

type WinRateRange struct {
	Min float64
	Max float64
}

func (r WinRateRange) IsZero() bool { return r.Min == 0 && r.Max == 0 }

func (r WinRateRange) Contains(v float64) bool {
	if r.IsZero() {
		return true
	}
	return v >= r.Min && v <= r.Max
}

type RatingRange struct {
	Min int
	Max int
}

func (r RatingRange) IsZero() bool { return r.Min == 0 && r.Max == 0 }

func (r RatingRange) Contains(v int) bool {
	if r.IsZero() {
		return true
	}
	return v >= r.Min && v <= r.Max
}

// PlayerStats is the read model the statistics collaborator serves for
// join gating, keyed (playerID, gameType) by its owner.
type PlayerStats struct {
	Rating         int
	WinRate        float64
	DisconnectRate float64
	GamesRecorded  int
}

// Preferences is what a joiner states. Zero values mean "no preference".
type Preferences struct {
	BaseBet           int64
	AcceptableBets    BetRange
	WinRateRange      WinRateRange
	MaxDisconnectRate float64
	RatingRange       RatingRange
}

// Settings is the table-level acceptance policy, established by the first
// occupant of an empty table and reset to defaults when it empties.
type Settings struct {
	BaseBet           int64
	AcceptableBets    BetRange
	WinRateRange      WinRateRange
	MaxDisconnectRate float64
	RatingRange       RatingRange
}

// SettingsFromPreferences builds the table settings the first occupant
// establishes. A stated base bet outside the stated accepted range would
// make the table unjoinable, so the range is widened to cover it.
func SettingsFromPreferences(p Preferences) Settings {
	s := Settings{
		BaseBet:           p.BaseBet,
		AcceptableBets:    p.AcceptableBets,
		WinRateRange:      p.WinRateRange,
		MaxDisconnectRate: p.MaxDisconnectRate,
		RatingRange:       p.RatingRange,
	}
	if !s.AcceptableBets.IsZero() && s.BaseBet > 0 {
		if s.BaseBet < s.AcceptableBets.Min {
			s.AcceptableBets.Min = s.BaseBet
		}
		if s.BaseBet > s.AcceptableBets.Max {
			s.AcceptableBets.Max = s.BaseBet
		}
	}
	return s
}

// CriteriaError carries the specific unmet join criterion. The reason is
// surfaced verbatim to the rejected player.
type CriteriaError struct {
	Reason string
}

func (e *CriteriaError) Error() string { return e.Reason }

func criteriaErrorf(format string, args ...any) *CriteriaError {
	return &CriteriaError{Reason: fmt.Sprintf(format, args...)}
}

// CheckJoinCriteria runs the join gates in order and returns the first
// failure. The first occupant of an empty table always passes; the caller
// adopts its preferences as the table settings afterwards.
func CheckJoinCriteria(stats PlayerStats, prefs Preferences, settings Settings, firstOccupant bool) error {
	if firstOccupant {
		return nil
	}
	if settings.BaseBet > 0 && !prefs.AcceptableBets.Contains(settings.BaseBet) {
		return criteriaErrorf("table base bet %d outside your accepted range [%d, %d]",
			settings.BaseBet, prefs.AcceptableBets.Min, prefs.AcceptableBets.Max)
	}
	if prefs.BaseBet > 0 && !settings.AcceptableBets.Contains(prefs.BaseBet) {
		return criteriaErrorf("your base bet %d outside table accepted range [%d, %d]",
			prefs.BaseBet, settings.AcceptableBets.Min, settings.AcceptableBets.Max)
	}
	if !settings.WinRateRange.Contains(stats.WinRate) {
		return criteriaErrorf("win rate %.2f outside table range [%.2f, %.2f]",
			stats.WinRate, settings.WinRateRange.Min, settings.WinRateRange.Max)
	}
	if settings.MaxDisconnectRate > 0 && stats.GamesRecorded >= MinDisconnectSample &&
		stats.DisconnectRate > settings.MaxDisconnectRate {
		return criteriaErrorf("disconnect rate %.2f above table ceiling %.2f",
			stats.DisconnectRate, settings.MaxDisconnectRate)
	}
	if !settings.RatingRange.Contains(stats.Rating) {
		return criteriaErrorf("rating %d outside table range [%d, %d]",
			stats.Rating, settings.RatingRange.Min, settings.RatingRange.Max)
	}
	return nil
}
