package events

const (
	Snapshot           = "snapshot"
	OccupantJoined     = "occupant_joined"
	OccupantLeft       = "occupant_left"
	ReadyCheckStarted  = "ready_check_started"
	ReadyCheckCanceled = "ready_check_canceled"
	ReadyCheckTimeout  = "ready_check_timeout"
	CountdownTick      = "countdown_tick"
	RoundStarted       = "round_started"
	RoundEnded         = "round_ended"
	Forfeit            = "forfeit"
	TableReset         = "table_reset"
	QueueJoined        = "queue_joined"
	QueueLeft          = "queue_left"
	MatchFound         = "match_found"
	MatchFailed        = "match_failed"
	ForceStateSync     = "force_state_sync"
)
