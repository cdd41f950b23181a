package stat

import (
	"context"
	"testing"

	"tablecenter/internal/engine/rules"
)

func TestGetUnknownReturnsDefaults(t *testing.T) {
	m := NewMemory()
	stats, err := m.Get(context.Background(), "p1", "duel")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stats.Rating != DefaultRating {
		t.Fatalf("Rating = %d, want %d", stats.Rating, DefaultRating)
	}
	if stats.GamesRecorded != 0 {
		t.Fatalf("GamesRecorded = %d, want 0", stats.GamesRecorded)
	}
}

func TestRecordUpdatesRates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := m.Record(ctx, "p1", "duel", Outcome{Won: true, RatingDelta: 10}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := m.Record(ctx, "p1", "duel", Outcome{Disconnected: true, RatingDelta: -15}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	stats, err := m.Get(ctx, "p1", "duel")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stats.GamesRecorded != 4 {
		t.Fatalf("GamesRecorded = %d, want 4", stats.GamesRecorded)
	}
	if stats.WinRate != 0.75 {
		t.Fatalf("WinRate = %v, want 0.75", stats.WinRate)
	}
	if stats.DisconnectRate != 0.25 {
		t.Fatalf("DisconnectRate = %v, want 0.25", stats.DisconnectRate)
	}
	if stats.Rating != DefaultRating+15 {
		t.Fatalf("Rating = %d, want %d", stats.Rating, DefaultRating+15)
	}
}

func TestPutSeedsStats(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seed := rules.PlayerStats{Rating: 1200, WinRate: 0.5, DisconnectRate: 0.1, GamesRecorded: 20}
	if err := m.Put(ctx, "p1", "duel", seed); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := m.Get(ctx, "p1", "duel")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != seed {
		t.Fatalf("Get() = %+v, want %+v", got, seed)
	}

	if err := m.Record(ctx, "p1", "duel", Outcome{Won: true}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	got, _ = m.Get(ctx, "p1", "duel")
	if got.GamesRecorded != 21 {
		t.Fatalf("GamesRecorded after seed+record = %d, want 21", got.GamesRecorded)
	}
}
