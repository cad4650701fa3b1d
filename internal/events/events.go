// Package events publishes access decisions for other systems (door relays,
// audit sinks) to consume.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindRegistered Kind = "registered"
	KindLogin      Kind = "login"
)

// Event is the JSON payload published for every Register and Login.
type Event struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Name    string    `json:"name,omitempty"`
	Outcome string    `json:"outcome"`
	Score   float64   `json:"score,omitempty"`
	UserID  int64     `json:"userId,omitempty"`
	At      time.Time `json:"at"`
}

// New stamps an event with a fresh ID and the current time.
func New(kind Kind, outcome string) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Outcome: outcome, At: time.Now().UTC()}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
