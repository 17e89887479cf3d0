// Package events contains the IBC chain-event taxonomy reported by
// agents and consumed by the collector's metrics pipeline.
//
// Tendermint delivers events as stringly-typed attribute maps. The
// outer classification is kept strongly typed (one Go type per event
// kind) while attributes stay in a generic bag, because the upstream
// attribute format keeps evolving.
package events

// Kind identifies an IBC event type.
type Kind string

// Known IBC event kinds.
const (
	KindCreateClient          Kind = "create_client"
	KindUpdateClient          Kind = "update_client"
	KindClientMisbehavior     Kind = "client_misbehaviour"
	KindOpenInitConnection    Kind = "connection_open_init"
	KindOpenTryConnection     Kind = "connection_open_try"
	KindOpenAckConnection     Kind = "connection_open_ack"
	KindOpenConfirmConnection Kind = "connection_open_confirm"
	KindSendPacketChannel     Kind = "send_packet"
	KindRecievePacketChannel  Kind = "recv_packet"
	KindOpaquePacket          Kind = "opaque_packet"
	KindPacketTransfer        Kind = "fungible_token_packet"
)

// Attributes is the event attribute bag keyed by the dotted
// "event_type.attribute" names Tendermint uses in subscription
// responses, e.g. "send_packet.packet_src_channel".
type Attributes map[string][]string

// First returns the first value for the given key.
func (a Attributes) First(key string) (string, bool) {
	vs, ok := a[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// GetFirst returns the first value for the given key, or the fallback
// sentinel when the attribute is missing.
func (a Attributes) GetFirst(key, fallback string) string {
	if v, ok := a.First(key); ok {
		return v
	}
	return fallback
}

// Clone returns a deep copy of the bag.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, vs := range a {
		cp := make([]string, len(vs))
		copy(cp, vs)
		out[k] = cp
	}
	return out
}

// Event is a typed IBC event carrying its raw attribute bag.
type Event interface {
	Kind() Kind
	Attrs() Attributes
}

type (
	// CreateClient is an ICS-02 client creation event.
	CreateClient struct{ Attributes Attributes }
	// UpdateClient is an ICS-02 client update event.
	UpdateClient struct{ Attributes Attributes }
	// ClientMisbehavior is an ICS-02 misbehaviour submission event.
	ClientMisbehavior struct{ Attributes Attributes }
	// OpenInitConnection is an ICS-03 connection handshake init event.
	OpenInitConnection struct{ Attributes Attributes }
	// OpenTryConnection is an ICS-03 connection handshake try event.
	OpenTryConnection struct{ Attributes Attributes }
	// OpenAckConnection is an ICS-03 connection handshake ack event.
	OpenAckConnection struct{ Attributes Attributes }
	// OpenConfirmConnection is an ICS-03 connection handshake confirm event.
	OpenConfirmConnection struct{ Attributes Attributes }
	// SendPacketChannel is an ICS-04 packet send event.
	SendPacketChannel struct{ Attributes Attributes }
	// RecievePacketChannel is an ICS-04 packet receive event.
	RecievePacketChannel struct{ Attributes Attributes }
	// OpaquePacket is a received packet whose payload could not be
	// decoded.
	OpaquePacket struct{ Attributes Attributes }
	// PacketTransfer is an ICS-20 fungible token transfer event.
	PacketTransfer struct{ Attributes Attributes }
)

// Kind implements Event.
func (e CreateClient) Kind() Kind { return KindCreateClient }

// Attrs implements Event.
func (e CreateClient) Attrs() Attributes { return e.Attributes }

// Kind implements Event.
func (e UpdateClient) Kind() Kind { return KindUpdateClient }

// Attrs implements Event.
func (e UpdateClient) Attrs() Attributes { return e.Attributes }

// Kind implements Event.
func (e ClientMisbehavior) Kind() Kind { return KindClientMisbehavior }

// Attrs implements Event.
func (e ClientMisbehavior) Attrs() Attributes { return e.Attributes }

// Kind implements Event.
func (e OpenInitConnection) Kind() Kind { return KindOpenInitConnection }

// Attrs implements Event.
func (e OpenInitConnection) Attrs() Attributes { return e.Attributes }

// Kind implements Event.
func (e OpenTryConnection) Kind() Kind { return KindOpenTryConnection }

// Attrs implements Event.
func (e OpenTryConnection) Attrs() Attributes { return e.Attributes }

// Kind implements Event.
func (e OpenAckConnection) Kind() Kind { return KindOpenAckConnection }

// Attrs implements Event.
func (e OpenAckConnection) Attrs() Attributes { return e.Attributes }

// Kind implements Event.
func (e OpenConfirmConnection) Kind() Kind { return KindOpenConfirmConnection }

// Attrs implements Event.
func (e OpenConfirmConnection) Attrs() Attributes { return e.Attributes }

// Kind implements Event.
func (e SendPacketChannel) Kind() Kind { return KindSendPacketChannel }

// Attrs implements Event.
func (e SendPacketChannel) Attrs() Attributes { return e.Attributes }

// Kind implements Event.
func (e RecievePacketChannel) Kind() Kind { return KindRecievePacketChannel }

// Attrs implements Event.
func (e RecievePacketChannel) Attrs() Attributes { return e.Attributes }

// Kind implements Event.
func (e OpaquePacket) Kind() Kind { return KindOpaquePacket }

// Attrs implements Event.
func (e OpaquePacket) Attrs() Attributes { return e.Attributes }

// Kind implements Event.
func (e PacketTransfer) Kind() Kind { return KindPacketTransfer }

// Attrs implements Event.
func (e PacketTransfer) Attrs() Attributes { return e.Attributes }

// New constructs the typed event for the given kind. It returns nil
// for unknown kinds.
func New(kind Kind, attrs Attributes) Event {
	switch kind {
	case KindCreateClient:
		return CreateClient{attrs}
	case KindUpdateClient:
		return UpdateClient{attrs}
	case KindClientMisbehavior:
		return ClientMisbehavior{attrs}
	case KindOpenInitConnection:
		return OpenInitConnection{attrs}
	case KindOpenTryConnection:
		return OpenTryConnection{attrs}
	case KindOpenAckConnection:
		return OpenAckConnection{attrs}
	case KindOpenConfirmConnection:
		return OpenConfirmConnection{attrs}
	case KindSendPacketChannel:
		return SendPacketChannel{attrs}
	case KindRecievePacketChannel:
		return RecievePacketChannel{attrs}
	case KindOpaquePacket:
		return OpaquePacket{attrs}
	case KindPacketTransfer:
		return PacketTransfer{attrs}
	}
	return nil
}
