package flow

import (
	"context"
	"time"
)

// Event types emitted by flows. User and device mutations happen only
// through these events; flows never write identity records directly.
const (
	EventUserUpserted = "user.upserted"
	EventUserLoggedIn = "user.logged_in"
	EventDeviceSeen   = "device.seen"
)

// Event is an identity mutation or audit record handed to the orchestration
// runtime for durable application.
type Event struct {
	Type    string            `json:"type"`
	At      time.Time         `json:"at"`
	Payload map[string]string `json:"payload,omitempty"`
}

// EventEmitter hands events to the orchestration runtime. Emit failures fail
// the flow - a login whose audit trail cannot be written did not happen.
type EventEmitter interface {
	Emit(ctx context.Context, event Event) error
}
