// Package brokers fans domain events out to the broadcast, push and call
// signaling delivery categories.
package brokers

import (
	"context"

	"messenger-service/internal/models"
)

// Category is one delivery channel family.
type Category string

const (
	Broadcasting      Category = "broadcasting"
	PushNotifications Category = "push_notifications"
	Calling           Category = "calling"
)

// Categories lists every category in dispatch order.
var Categories = []Category{Broadcasting, PushNotifications, Calling}

const (
	DriverDefault = "default"
	DriverNull    = "null"
)

// Audience is the set of providers an event targets: thread participants
// minus excluded senders.
type Audience []models.ProviderRef

// Without returns the audience minus the excluded providers.
func (a Audience) Without(excluded ...models.ProviderRef) Audience {
	out := make(Audience, 0, len(a))
	for _, ref := range a {
		skip := false
		for _, ex := range excluded {
			if ref == ex {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, ref)
		}
	}
	return out
}

// AudienceOf builds an audience from thread participants.
func AudienceOf(participants []models.Participant) Audience {
	out := make(Audience, 0, len(participants))
	for _, p := range participants {
		out = append(out, p.Owner())
	}
	return out
}

// Broker delivers one event to an audience. Implementations exist per
// category; all share this entry point.
type Broker interface {
	BroadcastEvent(ctx context.Context, event string, audience Audience, payload map[string]any) error
}

// NullBroker performs no I/O and never fails.
type NullBroker struct{}

func (NullBroker) BroadcastEvent(ctx context.Context, event string, audience Audience, payload map[string]any) error {
	return nil
}

// Event is a domain event handed to the dispatcher.
type Event struct {
	Name       string
	ThreadID   string
	Audience   Audience
	Payload    map[string]any
	Categories []Category
}

// targets reports whether the event should go to category c. An event
// with no categories goes to broadcasting and push.
func (e Event) targets(c Category) bool {
	if len(e.Categories) == 0 {
		return c == Broadcasting || c == PushNotifications
	}
	for _, cat := range e.Categories {
		if cat == c {
			return true
		}
	}
	return false
}
