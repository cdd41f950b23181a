// Package gametype holds the static per-game-type parameters. The
// registry is built once by the composition root and passed by reference
// to every consumer; there are no package-level instances.
package gametype

import (
	"errors"
	"sort"
	"sync"
	"time"

	"tablecenter/internal/engine/rules"
)

type ReadyMode string

const (
	// ReadyAll requires every active occupant to ready up.
	ReadyAll ReadyMode = "all"
	// ReadyMinimum requires only MinReady occupants to ready up.
	ReadyMinimum ReadyMode = "minimum"
)

type Config struct {
	ID           string
	MinOccupants int
	MaxOccupants int
	SeatStrategy rules.SeatStrategy
	ReadyMode    ReadyMode
	MinReady     int
	ReadyWindow  time.Duration
	RoundTimeout time.Duration
}

var (
	ErrUnknownGameType = errors.New("unknown game type")
	errBadGameType     = errors.New("invalid game type config")
)

func (c Config) validate() error {
	if c.ID == "" || c.MaxOccupants < 2 || c.MinOccupants < 1 || c.MinOccupants > c.MaxOccupants {
		return errBadGameType
	}
	if c.ReadyMode == ReadyMinimum && (c.MinReady < 1 || c.MinReady > c.MaxOccupants) {
		return errBadGameType
	}
	return nil
}

type Registry struct {
	mu    sync.RWMutex
	types map[string]Config
}

func NewRegistry() *Registry {
	return &Registry{types: map[string]Config{}}
}

func (r *Registry) Register(cfg Config) error {
	if cfg.SeatStrategy == "" {
		cfg.SeatStrategy = rules.SeatSequential
	}
	if cfg.ReadyMode == "" {
		cfg.ReadyMode = ReadyAll
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[cfg.ID] = cfg
	return nil
}

func (r *Registry) Get(id string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.types[id]
	if !ok {
		return Config{}, ErrUnknownGameType
	}
	return cfg, nil
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
