// Package events publishes a change feed of the mutations applied through a
// core.RowStore.
package events

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

var (
	// ErrPublisherClosed is returned when publishing to a closed publisher.
	ErrPublisherClosed = errors.New("publisher is closed")

	// ErrBufferFull is returned by MemoryPublisher when its buffer is full.
	ErrBufferFull = errors.New("event buffer is full")
)

// Op names the kind of change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpSet    Op = "SET"
	OpRemove Op = "REMOVE"
)

// ChangeEvent describes one applied statement.
type ChangeEvent struct {
	ID     uuid.UUID `json:"id"`
	Table  string    `json:"table"`
	Column string    `json:"column"`
	Op     Op        `json:"op"`

	// Path is empty for inserts.
	Path string `json:"path,omitempty"`

	// Value is the JSON written by a set or an insert.
	Value json.RawMessage `json:"value,omitempty"`

	// Key is set when the statement targeted a single row.
	Key any `json:"key,omitempty"`

	// Where renders the statement's predicates.
	Where []string `json:"where,omitempty"`

	Affected int64     `json:"affected"`
	Time     time.Time `json:"time"`
}

// Publisher delivers change events.
type Publisher interface {
	Publish(ctx context.Context, events ...ChangeEvent) error
	Close() error
}

func newEvent(table, column string, op Op) ChangeEvent {
	return ChangeEvent{
		ID:     uuid.New(),
		Table:  table,
		Column: column,
		Op:     op,
		Time:   time.Now().UTC(),
	}
}
