package changefeed

import (
	"encoding/json"
	"fmt"
	"slotwise/shared/timezone"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event describes one committed row change. Keys carries the columns subscribers filter on.
type Event struct {
	ID         string            `json:"id"`
	Table      string            `json:"table"`
	Type       EventType         `json:"type"`
	Keys       map[string]string `json:"keys"`
	Previous   json.RawMessage   `json:"previous,omitempty"`
	Current    json.RawMessage   `json:"current,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Origin     string            `json:"origin,omitempty"`
}

// NewEvent marshals previous and current rows. Either may be nil.
func NewEvent(table string, eventType EventType, keys map[string]string, previous, current any) (Event, error) {
	event := Event{
		ID:         uuid.NewString(),
		Table:      table,
		Type:       eventType,
		Keys:       keys,
		OccurredAt: timezone.Now(),
	}

	var err error

	if previous != nil {
		if event.Previous, err = json.Marshal(previous); err != nil {
			return Event{}, fmt.Errorf("failed to marshal previous row: %w", err)
		}
	}

	if current != nil {
		if event.Current, err = json.Marshal(current); err != nil {
			return Event{}, fmt.Errorf("failed to marshal current row: %w", err)
		}
	}

	return event, nil
}

// Decode unmarshals the previous and current rows into the given targets, skipping nil targets and empty rows.
func (e Event) Decode(previous, current any) error {
	if previous != nil && len(e.Previous) > 0 {
		if err := json.Unmarshal(e.Previous, previous); err != nil {
			return fmt.Errorf("failed to unmarshal previous row: %w", err)
		}
	}

	if current != nil && len(e.Current) > 0 {
		if err := json.Unmarshal(e.Current, current); err != nil {
			return fmt.Errorf("failed to unmarshal current row: %w", err)
		}
	}

	return nil
}

type Predicate func(Event) bool

// MatchKey matches events whose key equals value.
func MatchKey(key, value string) Predicate {
	return func(e Event) bool {
		return e.Keys[key] == value
	}
}

// Any matches when at least one predicate does.
func Any(predicates ...Predicate) Predicate {
	return func(e Event) bool {
		for _, predicate := range predicates {
			if predicate(e) {
				return true
			}
		}

		return false
	}
}
