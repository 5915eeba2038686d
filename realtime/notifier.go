// Package realtime tells connected clients that the data of a house may
// have changed. Events carry no payload beyond the kind; subscribers
// refetch and recompute on their own.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	KindExpensesChanged = "expenses_changed"
	KindHouseChanged    = "house_changed"
)

// Event is a change notification for one house.
type Event struct {
	HouseID uuid.UUID `json:"house_id"`
	Kind    string    `json:"kind"`
	At      time.Time `json:"at"`
}

func NewEvent(houseID uuid.UUID, kind string) Event {
	return Event{HouseID: houseID, Kind: kind, At: time.Now().UTC()}
}

// Notifier fans events out to every subscriber of a house, across
// processes when the backend allows it.
type Notifier interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe returns a channel of events for the house. The channel is
	// closed once ctx is done or the notifier is closed.
	Subscribe(ctx context.Context, houseID uuid.UUID) (<-chan Event, error)
	Close() error
}

// subscriberBuffer bounds how far a slow subscriber may fall behind before
// events are dropped for it.
const subscriberBuffer = 16

func encode(e Event) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return string(b), nil
}

func decode(payload string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}
