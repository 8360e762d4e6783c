// Package invalidation propagates cache invalidation events between
// nodes over a publish/subscribe channel.
package invalidation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/saviornt/CacheManager/internal/types"
)

// EventType classifies what an invalidation event targets.
type EventType string

const (
	// EventKey invalidates a single key.
	EventKey EventType = "key"
	// EventPattern invalidates keys matching a glob pattern.
	EventPattern EventType = "pattern"
	// EventNamespace invalidates a whole namespace.
	EventNamespace EventType = "namespace"
	// EventAll invalidates everything.
	EventAll EventType = "all"
)

// Event is the wire format carried on the invalidation channel.
type Event struct {
	Type      EventType `json:"type"`
	Key       string    `json:"key,omitempty"`
	Pattern   string    `json:"pattern,omitempty"`
	Namespace string    `json:"namespace,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
	Reason    string    `json:"reason,omitempty"`
}

func (e Event) encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: encode event: %w", types.ErrInvalidation, err)
	}
	return data, nil
}

func decodeEvent(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("%w: decode event: %w", types.ErrInvalidation, err)
	}
	return e, nil
}
