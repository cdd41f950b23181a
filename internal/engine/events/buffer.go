// Package events is the outbound edge of the engine. Every player-visible
// occurrence is appended to a bounded per-actor buffer; a transport drains
// buffers through Subscribe/ReplayAfter. Nothing in here knows about wires.
package events

import (
	"sync"
	"time"
)

type TableEvent struct {
	Seq      int64  `json:"seq"`
	Event    string `json:"event"`
	ActorID  string `json:"actor_id"`
	ServerTS int64  `json:"server_ts"`
	Data     any    `json:"data"`
}

// Buffer keeps the newest events in a fixed-size ring, each stamped with
// a monotonically increasing sequence number. Seq 0 is never assigned,
// so ReplayAfter(0) always means "everything still buffered".
type Buffer struct {
	mu     sync.Mutex
	seq    int64
	ring   []TableEvent
	count  int
	subs   map[chan TableEvent]struct{}
	closed bool
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 256
	}
	return &Buffer{
		ring: make([]TableEvent, capacity),
		subs: map[chan TableEvent]struct{}{},
	}
}

func (b *Buffer) Append(event, actorID string, data any) TableEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return TableEvent{}
	}
	b.seq++
	ev := TableEvent{
		Seq:      b.seq,
		Event:    event,
		ActorID:  actorID,
		ServerTS: time.Now().UnixMilli(),
		Data:     data,
	}
	b.ring[int(b.seq-1)%len(b.ring)] = ev
	if b.count < len(b.ring) {
		b.count++
	}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// ReplayAfter returns the buffered events with a sequence number greater
// than afterSeq, oldest first. Events older than the ring window are
// gone; a caller that fell that far behind gets the whole window and can
// tell from the first Seq how much it missed.
func (b *Buffer) ReplayAfter(afterSeq int64) []TableEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 || afterSeq >= b.seq {
		return nil
	}
	oldest := b.seq - int64(b.count) + 1
	from := afterSeq + 1
	if from < oldest {
		from = oldest
	}
	out := make([]TableEvent, 0, b.seq-from+1)
	for s := from; s <= b.seq; s++ {
		out = append(out, b.ring[int(s-1)%len(b.ring)])
	}
	return out
}

func (b *Buffer) Subscribe() chan TableEvent {
	ch := make(chan TableEvent, 32)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

func (b *Buffer) Unsubscribe(ch chan TableEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}
