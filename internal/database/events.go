package database

import (
	"context"
	"log/slog"
	"time"
)

// EventReceiver forwards dbr instrumentation to slog. Statement timings are
// logged at debug level and failures at error level.
type EventReceiver struct {
	logger *slog.Logger
}

// NewEventReceiver returns an EventReceiver writing to logger.
func NewEventReceiver(logger *slog.Logger) *EventReceiver {
	return &EventReceiver{logger: logger}
}

// Event receives a simple notification when various events occur.
func (r *EventReceiver) Event(eventName string) {
	r.logger.Debug(eventName)
}

// EventKv receives a notification when various events occur along with
// optional key/value data.
func (r *EventReceiver) EventKv(eventName string, kvs map[string]string) {
	r.logger.Debug(eventName, attrs(kvs)...)
}

// EventErr receives a notification of an error if one occurs.
func (r *EventReceiver) EventErr(eventName string, err error) error {
	r.logger.Error(eventName, "error", err)
	return err
}

// EventErrKv receives a notification of an error if one occurs along with
// optional key/value data.
func (r *EventReceiver) EventErrKv(eventName string, err error, kvs map[string]string) error {
	r.logger.Error(eventName, append(attrs(kvs), "error", err)...)
	return err
}

// Timing receives the time an event took to happen.
func (r *EventReceiver) Timing(eventName string, nanoseconds int64) {
	r.logger.Debug(eventName, "duration", time.Duration(nanoseconds))
}

// TimingKv receives the time an event took to happen along with optional
// key/value data.
func (r *EventReceiver) TimingKv(eventName string, nanoseconds int64, kvs map[string]string) {
	if !r.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	r.logger.Debug(eventName, append(attrs(kvs), "duration", time.Duration(nanoseconds))...)
}

func attrs(kvs map[string]string) []any {
	out := make([]any, 0, len(kvs)*2)
	for k, v := range kvs {
		out = append(out, k, v)
	}
	return out
}
