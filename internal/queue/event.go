// Package queue carries activity events over RabbitMQ: resource mutations are
// published by the API and a background consumer appends them to a log file.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types and actions.
const (
	TypeUser    = "user"
	TypeProduct = "product"

	ActionCreated     = "created"
	ActionUpdated     = "updated"
	ActionDeactivated = "deactivated"
	ActionActivated   = "activated"
)

// ActivityEvent describes one mutation of a user or product.
type ActivityEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Action     string    `json:"action"`
	ItemID     uint64    `json:"itemId"`
	Item       string    `json:"item"`
	ActorID    uint64    `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewActivityEvent stamps a fresh id.
func NewActivityEvent(typ, action string, itemID uint64, item string, actorID uint64, at time.Time) ActivityEvent {
	return ActivityEvent{
		ID:         uuid.New(),
		Type:       typ,
		Action:     action,
		ItemID:     itemID,
		Item:       item,
		ActorID:    actorID,
		OccurredAt: at.UTC(),
	}
}

// LogLine renders the event as one line of the activity log.
func (e ActivityEvent) LogLine() string {
	return fmt.Sprintf("[%s] %s %s | id=%s | item_id=%d | item=%q | actor_id=%d\n",
		e.OccurredAt.UTC().Format(time.RFC3339), e.Type, e.Action, e.ID, e.ItemID, e.Item, e.ActorID)
}
