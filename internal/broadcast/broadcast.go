// Package broadcast pushes match events to live subscribers.
//
// Delivery is fire-and-forget and best-effort: Emit must return immediately
// and must never propagate a failure back into phase advancement.
package broadcast

import (
	"log/slog"

	"pitwall/internal/event"
)

// Broadcaster receives every appended event. Implementations must be safe
// to call concurrently from multiple matches and must not block.
type Broadcaster interface {
	Emit(matchID string, rec event.Record)
}

// Log writes each event to a structured logger. Useful as the default
// broadcaster in the CLI.
type Log struct {
	Logger *slog.Logger
}

// Emit implements Broadcaster.
func (l Log) Emit(matchID string, rec event.Record) {
	l.Logger.Debug("event",
		"match_id", matchID,
		"seq", rec.Seq,
		"type", rec.Type,
	)
}

// Channel forwards events to a buffered channel, dropping when the buffer
// is full so a slow consumer can never stall a match.
type Channel struct {
	ch chan event.Record
}

// NewChannel returns a broadcaster buffering up to size events.
func NewChannel(size int) *Channel {
	return &Channel{ch: make(chan event.Record, size)}
}

// Events is the subscriber side.
func (c *Channel) Events() <-chan event.Record { return c.ch }

// Emit implements Broadcaster.
func (c *Channel) Emit(_ string, rec event.Record) {
	select {
	case c.ch <- rec:
	default:
		// Full buffer: drop. Best-effort by contract.
	}
}

// Nop discards everything.
type Nop struct{}

// Emit implements Broadcaster.
func (Nop) Emit(string, event.Record) {}
