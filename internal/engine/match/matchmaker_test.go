package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tablecenter/internal/config"
	"tablecenter/internal/engine/rules"
)

type captureSeater struct {
	mu    sync.Mutex
	pairs []Pair
	fail  int
}

func (s *captureSeater) SeatPair(_ context.Context, p Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail > 0 {
		s.fail--
		return errors.New("no table")
	}
	s.pairs = append(s.pairs, p)
	return nil
}

func (s *captureSeater) seated() []Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Pair(nil), s.pairs...)
}

func testMatchConfig() config.MatchConfig {
	return config.MatchConfig{
		Tick:             2 * time.Second,
		RatingGapCeiling: 500,
		RoomRelaxAfter:   20 * time.Second,
		GlobalRelaxAfter: 30 * time.Second,
	}
}

func ticket(id string, rating int, enqueued time.Time) Ticket {
	return Ticket{PlayerID: id, GameType: "duel", Rating: rating, EnqueuedAt: enqueued}
}

func TestPairsEarliestFirstWithinGap(t *testing.T) {
	seater := &captureSeater{}
	mm := NewGlobalMatchmaker(testMatchConfig(), NewMembership(), seater)
	ctx := context.Background()
	base := time.Now()

	// a is oldest; c is closest in rating to a but both b and c fit the
	// gap, so a pairs with the earlier-queued b.
	if err := mm.Join(ctx, ticket("a", 1000, base)); err != nil {
		t.Fatalf("Join(a): %v", err)
	}
	if err := mm.Join(ctx, ticket("b", 1400, base.Add(time.Second))); err != nil {
		t.Fatalf("Join(b): %v", err)
	}

	pairs := seater.seated()
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	got := map[string]bool{pairs[0].A.PlayerID: true, pairs[0].B.PlayerID: true}
	if !got["a"] || !got["b"] {
		t.Fatalf("pair = %s/%s, want a/b", pairs[0].A.PlayerID, pairs[0].B.PlayerID)
	}
	if pairs[0].MatchID == "" {
		t.Fatal("pair has empty match id")
	}
	if mm.Len() != 0 {
		t.Fatalf("queue length after pairing = %d, want 0", mm.Len())
	}
}

func TestGapBlocksUntilRelaxed(t *testing.T) {
	seater := &captureSeater{}
	cfg := testMatchConfig()
	mm := NewGlobalMatchmaker(cfg, NewMembership(), seater)
	ctx := context.Background()
	base := time.Now()

	if err := mm.Join(ctx, ticket("low", 800, base)); err != nil {
		t.Fatalf("Join(low): %v", err)
	}
	if err := mm.Join(ctx, ticket("high", 1600, base.Add(time.Second))); err != nil {
		t.Fatalf("Join(high): %v", err)
	}
	if n := len(seater.seated()); n != 0 {
		t.Fatalf("pairs before relax = %d, want 0", n)
	}

	// Before the relax threshold the gap still blocks.
	mm.Tick(ctx, base.Add(cfg.GlobalRelaxAfter/2))
	if n := len(seater.seated()); n != 0 {
		t.Fatalf("pairs mid-wait = %d, want 0", n)
	}

	mm.Tick(ctx, base.Add(cfg.GlobalRelaxAfter+time.Second))
	if n := len(seater.seated()); n != 1 {
		t.Fatalf("pairs after relax = %d, want 1", n)
	}
}

func TestRoomBandOpenPairsAnyRatings(t *testing.T) {
	seater := &captureSeater{}
	mm := NewRoomMatchmaker("room-open", rules.RatingRange{}, testMatchConfig(), NewMembership(), seater)
	ctx := context.Background()
	base := time.Now()

	if err := mm.Join(ctx, ticket("low", 100, base)); err != nil {
		t.Fatalf("Join(low): %v", err)
	}
	if err := mm.Join(ctx, ticket("high", 9000, base.Add(time.Second))); err != nil {
		t.Fatalf("Join(high): %v", err)
	}
	if n := len(seater.seated()); n != 1 {
		t.Fatalf("open room pairs = %d, want 1", n)
	}
}

func TestThreeQueuedPairsTwoEarliest(t *testing.T) {
	seater := &captureSeater{}
	mm := NewRoomMatchmaker("room-open", rules.RatingRange{}, testMatchConfig(), NewMembership(), seater)
	ctx := context.Background()
	base := time.Now()

	if err := mm.Join(ctx, ticket("a", 1000, base)); err != nil {
		t.Fatalf("Join(a): %v", err)
	}
	if err := mm.Join(ctx, ticket("b", 1000, base.Add(time.Second))); err != nil {
		t.Fatalf("Join(b): %v", err)
	}
	if err := mm.Join(ctx, ticket("c", 1000, base.Add(2*time.Second))); err != nil {
		t.Fatalf("Join(c): %v", err)
	}
	mm.Tick(ctx, time.Now())

	pairs := seater.seated()
	if len(pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(pairs))
	}
	got := map[string]bool{pairs[0].A.PlayerID: true, pairs[0].B.PlayerID: true}
	if !got["a"] || !got["b"] {
		t.Fatalf("pair = %s/%s, want the two earliest a/b", pairs[0].A.PlayerID, pairs[0].B.PlayerID)
	}
	if mm.Len() != 1 {
		t.Fatalf("queue length = %d, want c still queued", mm.Len())
	}
}

func TestJoiningSiblingQueuePurgesPriorMembership(t *testing.T) {
	ms := NewMembership()
	seater := &captureSeater{}
	room := NewRoomMatchmaker("room-1", rules.RatingRange{Min: 1, Max: 2000}, testMatchConfig(), ms, seater)
	global := NewGlobalMatchmaker(testMatchConfig(), ms, seater)
	ctx := context.Background()

	if err := room.Join(ctx, ticket("a", 1000, time.Now())); err != nil {
		t.Fatalf("room Join(a): %v", err)
	}
	if err := global.Join(ctx, ticket("a", 1000, time.Now())); err != nil {
		t.Fatalf("global Join(a) = %v, want purge of the room membership and success", err)
	}

	if room.Len() != 0 {
		t.Fatalf("room queue length = %d, want 0 after purge", room.Len())
	}
	if global.Len() != 1 {
		t.Fatalf("global queue length = %d, want 1", global.Len())
	}
	if scope, ok := ms.Scope("a"); !ok || scope != GlobalScope {
		t.Fatalf("membership scope = %q, %v, want %q", scope, ok, GlobalScope)
	}

	// The stale room queue can no longer act on the player.
	if err := room.Leave(ctx, "a"); !errors.Is(err, ErrNotQueued) {
		t.Fatalf("room Leave(a) after purge = %v, want ErrNotQueued", err)
	}
}

func TestPurgedTicketNeverPairs(t *testing.T) {
	ms := NewMembership()
	seater := &captureSeater{}
	room := NewRoomMatchmaker("room-1", rules.RatingRange{}, testMatchConfig(), ms, seater)
	global := NewGlobalMatchmaker(testMatchConfig(), ms, seater)
	ctx := context.Background()
	base := time.Now()

	if err := room.Join(ctx, ticket("a", 1000, base)); err != nil {
		t.Fatalf("room Join(a): %v", err)
	}
	if err := global.Join(ctx, ticket("a", 1000, base)); err != nil {
		t.Fatalf("global Join(a): %v", err)
	}
	if err := room.Join(ctx, ticket("b", 1000, base.Add(time.Second))); err != nil {
		t.Fatalf("room Join(b): %v", err)
	}
	room.Tick(ctx, time.Now())

	if n := len(seater.seated()); n != 0 {
		t.Fatalf("room pairs = %d, want 0 (a moved to the global queue)", n)
	}
	if room.Len() != 1 {
		t.Fatalf("room queue length = %d, want b alone", room.Len())
	}
}

func TestLeaveUnknownPlayer(t *testing.T) {
	mm := NewGlobalMatchmaker(testMatchConfig(), NewMembership(), &captureSeater{})
	if err := mm.Leave(context.Background(), "ghost"); !errors.Is(err, ErrNotQueued) {
		t.Fatalf("Leave(ghost) = %v, want ErrNotQueued", err)
	}
}

func TestSeatFailureRequeuesWithOriginalTimestamps(t *testing.T) {
	seater := &captureSeater{fail: 1}
	mm := NewGlobalMatchmaker(testMatchConfig(), NewMembership(), seater)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	if err := mm.Join(ctx, ticket("a", 1000, base)); err != nil {
		t.Fatalf("Join(a): %v", err)
	}
	if err := mm.Join(ctx, ticket("b", 1100, base.Add(time.Second))); err != nil {
		t.Fatalf("Join(b): %v", err)
	}

	// First attempt failed; both are queued again with their original
	// positions and the next pass seats them.
	if mm.Len() != 2 {
		t.Fatalf("queue length after failed seating = %d, want 2", mm.Len())
	}
	mm.Tick(ctx, time.Now())
	pairs := seater.seated()
	if len(pairs) != 1 {
		t.Fatalf("pairs after retry = %d, want 1", len(pairs))
	}
	if !pairs[0].A.EnqueuedAt.Equal(base) && !pairs[0].B.EnqueuedAt.Equal(base) {
		t.Fatal("requeued tickets lost their original enqueue timestamps")
	}
}

func TestDifferentGameTypesNeverPair(t *testing.T) {
	seater := &captureSeater{}
	mm := NewGlobalMatchmaker(testMatchConfig(), NewMembership(), seater)
	ctx := context.Background()

	a := ticket("a", 1000, time.Now())
	b := ticket("b", 1000, time.Now().Add(time.Second))
	b.GameType = "other"
	if err := mm.Join(ctx, a); err != nil {
		t.Fatalf("Join(a): %v", err)
	}
	if err := mm.Join(ctx, b); err != nil {
		t.Fatalf("Join(b): %v", err)
	}
	if n := len(seater.seated()); n != 0 {
		t.Fatalf("cross-game pairs = %d, want 0", n)
	}
}
