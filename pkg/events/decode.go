package events

import (
	"encoding/json"
)

// RawTxEvent is the payload of a single transaction event pushed over a
// Tendermint websocket subscription. Only the fields the classifier
// needs are decoded; the rest of the notification is opaque.
type RawTxEvent struct {
	Query string `json:"query"`
	Data  struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"data"`
	Events map[string][]string `json:"events"`
}

// classifyOrder fixes the order in which event kinds are extracted from
// a raw event so that a batch is deterministic for a given input.
var classifyOrder = []Kind{
	KindCreateClient,
	KindUpdateClient,
	KindClientMisbehavior,
	KindOpenInitConnection,
	KindOpenTryConnection,
	KindOpenAckConnection,
	KindOpenConfirmConnection,
	KindSendPacketChannel,
	KindRecievePacketChannel,
	KindPacketTransfer,
}

// GetAllEvents classifies a raw pushed event into zero or more typed
// IBC events. The classifier looks at the dotted attribute keys: every
// known "event_type." prefix present in the map yields one typed event
// carrying a copy of the full bag. Attribute values are copied
// verbatim. Unknown event types yield nothing.
//
// A recv_packet whose packet_data is not valid JSON is classified as
// OpaquePacket instead of RecievePacketChannel.
func GetAllEvents(raw *RawTxEvent) []Event {
	if raw == nil || len(raw.Events) == 0 {
		return nil
	}

	bag := Attributes(raw.Events)
	var out []Event
	for _, kind := range classifyOrder {
		if !hasPrefix(bag, string(kind)) {
			continue
		}
		if kind == KindRecievePacketChannel && !packetDataDecodable(bag) {
			out = append(out, OpaquePacket{bag.Clone()})
			continue
		}
		out = append(out, New(kind, bag.Clone()))
	}
	return out
}

func hasPrefix(bag Attributes, prefix string) bool {
	p := prefix + "."
	for k := range bag {
		if len(k) > len(p) && k[:len(p)] == p {
			return true
		}
	}
	return false
}

func packetDataDecodable(bag Attributes) bool {
	data, ok := bag.First("recv_packet.packet_data")
	if !ok {
		// No payload at all still counts as a regular receive.
		return true
	}
	return json.Valid([]byte(data))
}
