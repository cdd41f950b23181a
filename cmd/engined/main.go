package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"tablecenter/internal/config"
	"tablecenter/internal/engine/ai"
	"tablecenter/internal/engine/center"
	"tablecenter/internal/engine/gametype"
	"tablecenter/internal/engine/rules"
	"tablecenter/internal/engine/session"
	"tablecenter/internal/engine/stat"
	"tablecenter/internal/logging"
)

// Default rating bands: three laddered rooms plus one open room per
// game type.
var defaultBands = []rules.RatingRange{
	{Min: 1, Max: 999},
	{Min: 1000, Max: 1999},
	{Min: 2000, Max: 9999},
	{},
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	registry := gametype.NewRegistry()
	for _, gt := range defaultGameTypes(cfg.Engine) {
		if err := registry.Register(gt); err != nil {
			log.Fatal().Err(err).Str("game_type", gt.ID).Msg("game type registration failed")
		}
	}

	stats := stat.NewMemory()
	pool := ai.NewPoolManager(defaultAIProfiles(), 0.3)
	c := center.New(cfg.Engine, cfg.Match, registry, stats, session.NopRounds{}, pool)

	for _, id := range registry.IDs() {
		for _, band := range defaultBands {
			if _, err := c.AddRoom(id, band); err != nil {
				log.Fatal().Err(err).Str("game_type", id).Msg("room creation failed")
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.StartMatchmakers(ctx)
	c.StartSweeper(ctx)
	log.Info().
		Strs("game_types", registry.IDs()).
		Int("rooms_per_type", len(defaultBands)).
		Msg("engine running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Str("signal", s.String()).Msg("shutting down")
	cancel()
	c.Stop()
}

func defaultGameTypes(cfg config.EngineConfig) []gametype.Config {
	return []gametype.Config{
		{
			ID:           "duel",
			MinOccupants: 2,
			MaxOccupants: 2,
			ReadyMode:    gametype.ReadyAll,
			ReadyWindow:  cfg.ReadyWindow,
			RoundTimeout: cfg.RoundTimeout,
		},
	}
}

func defaultAIProfiles() []ai.Profile {
	var profiles []ai.Profile
	for i, rating := range []int{700, 900, 1100, 1300, 1500, 1800, 2100, 2400} {
		profiles = append(profiles, ai.Profile{
			ID:          fmt.Sprintf("ai-%02d", i+1),
			DisplayName: fmt.Sprintf("Challenger %d", i+1),
			Rating:      rating,
		})
	}
	return profiles
}
