package table

import "errors"

var (
	ErrTableFull         = errors.New("table_full")
	ErrAlreadySeated     = errors.New("already_seated")
	ErrNoSeat            = errors.New("no_seat")
	ErrNotSeated         = errors.New("not_seated")
	ErrNotSpectating     = errors.New("not_spectating")
	ErrInvalidTransition = errors.New("invalid_transition")
)
