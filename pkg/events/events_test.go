package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttributes(t *testing.T) {
	a := Attributes{
		"send_packet.packet_src_channel": {"channel-0", "channel-1"},
		"send_packet.packet_src_port":    {"transfer"},
		"empty":                          {},
	}

	v, ok := a.First("send_packet.packet_src_channel")
	require.True(t, ok)
	require.Equal(t, "channel-0", v)

	_, ok = a.First("missing")
	require.False(t, ok)
	_, ok = a.First("empty")
	require.False(t, ok)

	require.Equal(t, "transfer", a.GetFirst("send_packet.packet_src_port", "fallback"))
	require.Equal(t, "fallback", a.GetFirst("missing", "fallback"))
}

func TestAttributesClone(t *testing.T) {
	a := Attributes{"k": {"v1", "v2"}}
	b := a.Clone()
	b["k"][0] = "changed"
	b["extra"] = []string{"x"}

	require.Equal(t, "v1", a["k"][0])
	require.NotContains(t, a, "extra")
}

func TestNew(t *testing.T) {
	attrs := Attributes{"create_client.client_id": {"07-tendermint-0"}}
	for _, kind := range []Kind{
		KindCreateClient,
		KindUpdateClient,
		KindClientMisbehavior,
		KindOpenInitConnection,
		KindOpenTryConnection,
		KindOpenAckConnection,
		KindOpenConfirmConnection,
		KindSendPacketChannel,
		KindRecievePacketChannel,
		KindOpaquePacket,
		KindPacketTransfer,
	} {
		e := New(kind, attrs)
		require.NotNil(t, e, string(kind))
		require.Equal(t, kind, e.Kind())
		require.Equal(t, attrs, e.Attrs())
	}
	require.Nil(t, New("bogus_event", attrs))
}

func TestGetAllEvents(t *testing.T) {
	raw := &RawTxEvent{
		Query: "tm.event='Tx'",
		Events: map[string][]string{
			"message.sender":                  {"cosmos1sender"},
			"send_packet.packet_src_channel":  {"channel-0"},
			"send_packet.packet_data":         {`{"amount":"100"}`},
			"update_client.client_id":         {"07-tendermint-3"},
			"unknown_event.some_attr":         {"x"},
			"fungible_token_packet.amount":    {"100"},
			"fungible_token_packet.receiver":  {"cosmos1receiver"},
			"connection_open_ack.client_id":   {"07-tendermint-3"},
			"transfer.amount":                 {"100uatom"},
			"tx.height":                       {"42"},
			"connection_open_ack.conn_id":     {"connection-1"},
			"fungible_token_packet.sender":    {"cosmos1sender"},
			"send_packet.packet_dst_channel":  {"channel-5"},
			"update_client.consensus_heights": {"1-42"},
		},
	}

	batch := GetAllEvents(raw)
	require.Len(t, batch, 4)

	// Classification order is fixed.
	require.Equal(t, KindUpdateClient, batch[0].Kind())
	require.Equal(t, KindOpenAckConnection, batch[1].Kind())
	require.Equal(t, KindSendPacketChannel, batch[2].Kind())
	require.Equal(t, KindPacketTransfer, batch[3].Kind())

	// Each event carries the full bag.
	v, ok := batch[2].Attrs().First("message.sender")
	require.True(t, ok)
	require.Equal(t, "cosmos1sender", v)
}

func TestGetAllEventsOpaquePacket(t *testing.T) {
	raw := &RawTxEvent{
		Events: map[string][]string{
			"recv_packet.packet_src_channel": {"channel-0"},
			"recv_packet.packet_data":        {"\x01\x02not json"},
		},
	}
	batch := GetAllEvents(raw)
	require.Len(t, batch, 1)
	require.Equal(t, KindOpaquePacket, batch[0].Kind())

	// Valid JSON payload stays a regular receive.
	raw.Events["recv_packet.packet_data"] = []string{`{"amount":"1"}`}
	batch = GetAllEvents(raw)
	require.Len(t, batch, 1)
	require.Equal(t, KindRecievePacketChannel, batch[0].Kind())

	// So does a receive without any payload attribute.
	delete(raw.Events, "recv_packet.packet_data")
	batch = GetAllEvents(raw)
	require.Len(t, batch, 1)
	require.Equal(t, KindRecievePacketChannel, batch[0].Kind())
}

func TestGetAllEventsEmpty(t *testing.T) {
	require.Nil(t, GetAllEvents(nil))
	require.Nil(t, GetAllEvents(&RawTxEvent{}))
	require.Nil(t, GetAllEvents(&RawTxEvent{
		Events: map[string][]string{"message.sender": {"cosmos1sender"}},
	}))
}

func TestJSONRoundTrip(t *testing.T) {
	e := New(KindSendPacketChannel, Attributes{
		"send_packet.packet_src_channel": {"channel-0"},
		"message.sender":                 {"cosmos1sender"},
	})
	data, err := Marshal(e)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, e, decoded)
}

func TestUnmarshalUnknownKind(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type":"bogus_event","attributes":{}}`))
	require.Error(t, err)

	_, err = Marshal(nil)
	require.Error(t, err)
}
