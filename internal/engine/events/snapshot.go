package events

// Snapshot payloads are fully constructed at the data-model boundary:
// slices are never nil and every field carries a value, so no consumer
// ever has to null-check.

type OccupantView struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Seat        int    `json:"seat"`
	Ready       bool   `json:"ready"`
	Active      bool   `json:"active"`
	AIManaged   bool   `json:"ai_managed"`
}

type SettingsView struct {
	BaseBet           int64   `json:"base_bet"`
	BetMin            int64   `json:"bet_min"`
	BetMax            int64   `json:"bet_max"`
	WinRateMin        float64 `json:"win_rate_min"`
	WinRateMax        float64 `json:"win_rate_max"`
	MaxDisconnectRate float64 `json:"max_disconnect_rate"`
	RatingMin         int     `json:"rating_min"`
	RatingMax         int     `json:"rating_max"`
}

type TableSnapshot struct {
	TableID      string         `json:"table_id"`
	GameType     string         `json:"game_type"`
	Status       string         `json:"status"`
	MaxOccupants int            `json:"max_occupants"`
	Occupants    []OccupantView `json:"occupants"`
	Spectators   []string       `json:"spectators"`
	Settings     SettingsView   `json:"settings"`
	RoundEnded   bool           `json:"round_ended"`
}
