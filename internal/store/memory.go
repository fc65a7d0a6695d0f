package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pitwall/internal/event"
)

// Memory is an in-memory Sink for tests and the conformance harness.
// Sequence assignment is atomic under the mutex; semantics match Store.
type Memory struct {
	mu      sync.Mutex
	seeds   map[string]string
	records map[string][]event.Record
}

var _ Sink = (*Memory)(nil)

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{
		seeds:   make(map[string]string),
		records: make(map[string][]event.Record),
	}
}

// Register implements Sink.
func (m *Memory) Register(_ context.Context, matchID, seed string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seeds[matchID]; ok {
		return fmt.Errorf("register match %s: already registered", matchID)
	}
	m.seeds[matchID] = seed
	return nil
}

// Append implements Sink.
func (m *Memory) Append(_ context.Context, matchID string, p event.Payload) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seeds[matchID]; !ok {
		return 0, fmt.Errorf("append to %s: %w", matchID, ErrUnknownMatch)
	}
	seq := int64(len(m.records[matchID]))
	m.records[matchID] = append(m.records[matchID], event.Record{
		MatchID: matchID,
		Seq:     seq,
		Type:    p.EventType(),
		Payload: p,
		At:      time.Now().UTC(),
	})
	return seq, nil
}

// Query implements Sink.
func (m *Memory) Query(_ context.Context, matchID string, from, to int64) ([]event.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seeds[matchID]; !ok {
		return nil, fmt.Errorf("query %s: %w", matchID, ErrUnknownMatch)
	}
	out := []event.Record{}
	for _, rec := range m.records[matchID] {
		if rec.Seq < from {
			continue
		}
		if to >= 0 && rec.Seq > to {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Matches lists every registered match ID in lexical order.
func (m *Memory) Matches(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.seeds))
	for id := range m.seeds {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Seed implements Sink.
func (m *Memory) Seed(_ context.Context, matchID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seed, ok := m.seeds[matchID]
	if !ok {
		return "", fmt.Errorf("seed of %s: %w", matchID, ErrUnknownMatch)
	}
	return seed, nil
}

// Failing wraps a Sink and fails every Append while marked down.
// Used to test that the engine swallows persistence unavailability.
type Failing struct {
	Sink
	mu   sync.Mutex
	down bool
}

// NewFailing wraps inner; it starts healthy.
func NewFailing(inner Sink) *Failing {
	return &Failing{Sink: inner}
}

// SetDown toggles append availability.
func (f *Failing) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

// Append implements Sink.
func (f *Failing) Append(ctx context.Context, matchID string, p event.Payload) (int64, error) {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return 0, fmt.Errorf("append to %s: sink unavailable", matchID)
	}
	return f.Sink.Append(ctx, matchID, p)
}
