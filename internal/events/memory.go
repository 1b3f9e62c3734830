package events

import (
	"context"
	"sync"
)

// MemoryPublisher buffers events in a channel. It is useful for tests and for
// in-process subscribers.
type MemoryPublisher struct {
	events chan ChangeEvent
	mu     sync.RWMutex
	closed bool
}

// NewMemoryPublisher creates a publisher buffering up to bufferSize events.
func NewMemoryPublisher(bufferSize int) *MemoryPublisher {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &MemoryPublisher{events: make(chan ChangeEvent, bufferSize)}
}

// Publish implements Publisher. It never blocks; a full buffer fails with
// ErrBufferFull.
func (p *MemoryPublisher) Publish(ctx context.Context, events ...ChangeEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	for _, ev := range events {
		select {
		case p.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		default:
			return ErrBufferFull
		}
	}
	return nil
}

// Events exposes the buffer. It is closed by Close.
func (p *MemoryPublisher) Events() <-chan ChangeEvent {
	return p.events
}

// Drain returns up to max buffered events without blocking. A max of 0
// drains everything.
func (p *MemoryPublisher) Drain(max int) []ChangeEvent {
	var out []ChangeEvent
	for max <= 0 || len(out) < max {
		select {
		case ev, ok := <-p.events:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
	return out
}

// Close implements Publisher.
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.events)
	return nil
}
