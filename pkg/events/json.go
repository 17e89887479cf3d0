package events

import (
	"encoding/json"
	"fmt"
)

// eventJSON is the wire form of an Event: the kind tag plus the raw
// attribute bag.
type eventJSON struct {
	Type       Kind       `json:"type"`
	Attributes Attributes `json:"attributes"`
}

// Marshal serializes an Event to its wire JSON form.
func Marshal(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("can't marshal nil event")
	}
	return json.Marshal(eventJSON{Type: e.Kind(), Attributes: e.Attrs()})
}

// Unmarshal deserializes an Event from its wire JSON form.
func Unmarshal(data []byte) (Event, error) {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return nil, err
	}
	e := New(ej.Type, ej.Attributes)
	if e == nil {
		return nil, fmt.Errorf("unknown IBC event type: %q", ej.Type)
	}
	return e, nil
}
