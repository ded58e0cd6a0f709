// Package events publishes domain events about users, videos and subscriptions.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	UserRegistered      = "user.registered"
	VideoPublished      = "video.published"
	VideoDeleted        = "video.deleted"
	SubscriptionCreated = "subscription.created"
	SubscriptionDeleted = "subscription.deleted"
)

// Event is one domain fact. Key groups events that must stay ordered, usually the acting user id.
type Event struct {
	Type       string         `json:"type"`
	Key        string         `json:"key"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}

// New stamps an event with the current time.
func New(eventType, key string, data map[string]any) Event {
	return Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher delivers events. Publish must not block the request on broker availability.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }
