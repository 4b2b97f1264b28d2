package events

import (
	"encoding/json"

	"github.com/fastchg/fastchg/pkg/policy"
)

// Event name constants
const (
	PolicyChanged = "policy.changed"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// PolicyChangedEvent is the typed payload for policy.changed.
type PolicyChangedEvent struct {
	Setting string          `json:"setting"`
	Before  policy.Snapshot `json:"before"`
	After   policy.Snapshot `json:"after"`
	Ts      int64           `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.PolicyChangedEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Setting, payload.After.ACLevel)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
