package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type MatchConfig struct {
	Tick             time.Duration `env:"MATCH_TICK" envDefault:"2s"`
	RatingGapCeiling int           `env:"MATCH_RATING_GAP" envDefault:"500"`
	RoomRelaxAfter   time.Duration `env:"MATCH_ROOM_RELAX_AFTER" envDefault:"20s"`
	GlobalRelaxAfter time.Duration `env:"MATCH_GLOBAL_RELAX_AFTER" envDefault:"30s"`
}

func LoadMatch() (MatchConfig, error) {
	var cfg MatchConfig
	err := env.Parse(&cfg)
	return cfg, err
}
