package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type EngineConfig struct {
	ReadyWindow      time.Duration `env:"READY_WINDOW" envDefault:"30s"`
	RoundTimeout     time.Duration `env:"ROUND_TIMEOUT" envDefault:"10m"`
	CountdownSeconds int           `env:"COUNTDOWN_SECONDS" envDefault:"3"`
	SettleDelay      time.Duration `env:"SETTLE_DELAY" envDefault:"50ms"`

	AIFallbackBase   time.Duration `env:"AI_FALLBACK_BASE" envDefault:"10s"`
	AIFallbackJitter time.Duration `env:"AI_FALLBACK_JITTER" envDefault:"3s"`
	AIReadyMin       time.Duration `env:"AI_READY_MIN" envDefault:"1s"`
	AIReadyMax       time.Duration `env:"AI_READY_MAX" envDefault:"2s"`
	AIGrace          time.Duration `env:"AI_GRACE" envDefault:"6s"`
	AIRatingGap      int           `env:"AI_RATING_GAP" envDefault:"500"`

	ZombieCeiling time.Duration `env:"ZOMBIE_CEILING" envDefault:"5m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`

	ActionQueueDepth int `env:"ACTION_QUEUE_DEPTH" envDefault:"64"`
	TablesPerRoom    int `env:"TABLES_PER_ROOM" envDefault:"32"`
}

func LoadEngine() (EngineConfig, error) {
	var cfg EngineConfig
	err := env.Parse(&cfg)
	return cfg, err
}
