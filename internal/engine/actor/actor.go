// Package actor defines the handle through which the engine talks to a
// seated or queued player. Humans get a buffered handle a transport
// drains; AI-managed seats get a handle owned by the AI collaborator.
// Both move through the same seating and readiness code paths.
package actor

import "tablecenter/internal/engine/events"

type Actor interface {
	ID() string
	Emit(event string, data any)
}

// Buffered is the human-facing handle: emits land in an events.Buffer.
type Buffered struct {
	id     string
	buffer *events.Buffer
}

func NewBuffered(id string, bufferSize int) *Buffered {
	return &Buffered{id: id, buffer: events.NewBuffer(bufferSize)}
}

func (a *Buffered) ID() string { return a.id }

func (a *Buffered) Emit(event string, data any) {
	a.buffer.Append(event, a.id, data)
}

func (a *Buffered) Buffer() *events.Buffer { return a.buffer }

func (a *Buffered) Close() { a.buffer.Close() }
