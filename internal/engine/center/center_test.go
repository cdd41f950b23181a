package center

import (
	"context"
	"errors"
	"testing"
	"time"

	"tablecenter/internal/config"
	"tablecenter/internal/engine/ai"
	"tablecenter/internal/engine/gametype"
	"tablecenter/internal/engine/match"
	"tablecenter/internal/engine/rules"
	"tablecenter/internal/engine/stat"
	"tablecenter/internal/engine/table"
)

type nopRounds struct{}

func (nopRounds) StartRound(context.Context, *table.Session) error        { return nil }
func (nopRounds) Forfeit(_ context.Context, _ string, _ string, _ string) {}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		ReadyWindow:      time.Second,
		SettleDelay:      0,
		AIFallbackBase:   time.Minute,
		AIReadyMin:       time.Millisecond,
		AIReadyMax:       time.Millisecond,
		AIGrace:          time.Minute,
		AIRatingGap:      500,
		ZombieCeiling:    5 * time.Minute,
		SweepInterval:    time.Minute,
		ActionQueueDepth: 16,
		TablesPerRoom:    2,
	}
}

func testMatchConfig() config.MatchConfig {
	return config.MatchConfig{
		Tick:             time.Second,
		RatingGapCeiling: 500,
		RoomRelaxAfter:   20 * time.Second,
		GlobalRelaxAfter: 30 * time.Second,
	}
}

func testCenter(t *testing.T) (*Center, *stat.Memory) {
	t.Helper()
	registry := gametype.NewRegistry()
	if err := registry.Register(gametype.Config{ID: "duel", MinOccupants: 2, MaxOccupants: 2}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	stats := stat.NewMemory()
	c := New(testEngineConfig(), testMatchConfig(), registry, stats, nopRounds{}, ai.NewPoolManager(nil, 0))
	t.Cleanup(c.Stop)
	return c, stats
}

func TestWalkInsPairUpBeforeSpreadingOut(t *testing.T) {
	c, _ := testCenter(t)
	room, err := c.AddRoom("duel", rules.RatingRange{})
	if err != nil {
		t.Fatalf("AddRoom: %v", err)
	}
	ctx := context.Background()

	tableX, _, err := room.Join(ctx, table.OccupantData{PlayerID: "x"})
	if err != nil {
		t.Fatalf("Join(x): %v", err)
	}
	tableY, _, err := room.Join(ctx, table.OccupantData{PlayerID: "y"})
	if err != nil {
		t.Fatalf("Join(y): %v", err)
	}
	if tableX != tableY {
		t.Fatalf("y seated at %s, want x's table %s", tableY, tableX)
	}

	o, err := room.Table(tableX)
	if err != nil {
		t.Fatalf("Table(%s): %v", tableX, err)
	}
	snap, err := o.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Status != string(rules.StatusMatching) {
		t.Fatalf("status = %s, want matching", snap.Status)
	}
}

func TestRoomBandGatesJoin(t *testing.T) {
	c, stats := testCenter(t)
	room, err := c.AddRoom("duel", rules.RatingRange{Min: 1, Max: 1500})
	if err != nil {
		t.Fatalf("AddRoom: %v", err)
	}
	ctx := context.Background()

	if err := stats.Put(ctx, "shark", "duel", rules.PlayerStats{Rating: 2400}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, _, err = room.Join(ctx, table.OccupantData{PlayerID: "shark"})
	var ce *rules.CriteriaError
	if !errors.As(err, &ce) {
		t.Fatalf("Join(shark) = %v, want CriteriaError", err)
	}
}

func TestIncompatibleWalkInGetsFreshTable(t *testing.T) {
	c, _ := testCenter(t)
	room, err := c.AddRoom("duel", rules.RatingRange{})
	if err != nil {
		t.Fatalf("AddRoom: %v", err)
	}
	ctx := context.Background()

	tableX, _, err := room.Join(ctx, table.OccupantData{
		PlayerID: "x",
		Prefs:    rules.Preferences{BaseBet: 100, AcceptableBets: rules.BetRange{Min: 50, Max: 200}},
	})
	if err != nil {
		t.Fatalf("Join(x): %v", err)
	}
	// y cannot accept x's base bet, so y opens a new table instead.
	tableY, _, err := room.Join(ctx, table.OccupantData{
		PlayerID: "y",
		Prefs:    rules.Preferences{AcceptableBets: rules.BetRange{Min: 500, Max: 1000}},
	})
	if err != nil {
		t.Fatalf("Join(y): %v", err)
	}
	if tableX == tableY {
		t.Fatal("y seated at a table whose base bet it cannot accept")
	}
}

func TestGlobalPairRoutedToBandRoom(t *testing.T) {
	c, stats := testCenter(t)
	if _, err := c.AddRoom("duel", rules.RatingRange{Min: 1, Max: 1000}); err != nil {
		t.Fatalf("AddRoom(low): %v", err)
	}
	high, err := c.AddRoom("duel", rules.RatingRange{Min: 1001, Max: 2000})
	if err != nil {
		t.Fatalf("AddRoom(high): %v", err)
	}
	ctx := context.Background()

	if err := stats.Put(ctx, "a", "duel", rules.PlayerStats{Rating: 1400}); err != nil {
		t.Fatalf("Put(a): %v", err)
	}
	if err := stats.Put(ctx, "b", "duel", rules.PlayerStats{Rating: 1600}); err != nil {
		t.Fatalf("Put(b): %v", err)
	}
	if err := c.QueueGlobal(ctx, match.Ticket{PlayerID: "a", GameType: "duel"}); err != nil {
		t.Fatalf("QueueGlobal(a): %v", err)
	}
	if err := c.QueueGlobal(ctx, match.Ticket{PlayerID: "b", GameType: "duel"}); err != nil {
		t.Fatalf("QueueGlobal(b): %v", err)
	}

	seated := 0
	for _, o := range high.Tables() {
		snap, err := o.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		seated += len(snap.Occupants)
	}
	if seated != 2 {
		t.Fatalf("high room occupants = %d, want the matched pair", seated)
	}
	if c.Global().Len() != 0 {
		t.Fatalf("global queue length = %d, want 0", c.Global().Len())
	}
}

func TestSweepResetsZombieTables(t *testing.T) {
	c, _ := testCenter(t)
	room, err := c.AddRoom("duel", rules.RatingRange{})
	if err != nil {
		t.Fatalf("AddRoom: %v", err)
	}
	ctx := context.Background()

	if _, _, err := room.Join(ctx, table.OccupantData{PlayerID: "x"}); err != nil {
		t.Fatalf("Join(x): %v", err)
	}
	if n := c.Sweep(ctx, time.Now()); n != 0 {
		t.Fatalf("Sweep(now) = %d, want 0", n)
	}
	if n := c.Sweep(ctx, time.Now().Add(10*time.Minute)); n != 1 {
		t.Fatalf("Sweep(past ceiling) = %d, want 1", n)
	}
}
