package netaddr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		addr     string
		expected Address
	}{
		{"tcp://127.0.0.1:26657", Address{Scheme: TCP, Host: "127.0.0.1", Port: 26657}},
		{"127.0.0.1:26657", Address{Scheme: TCP, Host: "127.0.0.1", Port: 26657}},
		{"tcp://0.0.0.0:26656", Address{Scheme: TCP, Host: "0.0.0.0", Port: 26656}},
		{"tcp://abcd1234@10.0.0.1:26656", Address{Scheme: TCP, PeerID: "abcd1234", Host: "10.0.0.1", Port: 26656}},
		{"abcd1234@10.0.0.1:26656", Address{Scheme: TCP, PeerID: "abcd1234", Host: "10.0.0.1", Port: 26656}},
		{"unix:///var/run/node.sock", Address{Scheme: Unix, Path: "/var/run/node.sock"}},
	}
	for _, tc := range testCases {
		actual, err := Parse(tc.addr)
		require.NoError(t, err, tc.addr)
		require.Equal(t, tc.expected, actual, tc.addr)
	}
}

func TestParseErrors(t *testing.T) {
	for _, addr := range []string{
		"",
		"http://example.com:80",
		"tcp://nohost",
		"tcp://localhost:notaport",
		"unix://",
	} {
		_, err := Parse(addr)
		require.Error(t, err, addr)
	}
}

func TestString(t *testing.T) {
	for _, s := range []string{
		"tcp://127.0.0.1:26657",
		"tcp://abcd1234@10.0.0.1:26656",
		"unix:///var/run/node.sock",
	} {
		addr, err := Parse(s)
		require.NoError(t, err)
		require.Equal(t, s, addr.String())
	}
}

func TestURLs(t *testing.T) {
	addr, err := Parse("tcp://localhost:26657")
	require.NoError(t, err)

	u, err := addr.HTTPURL()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:26657", u)

	ws, err := addr.WebSocketURL()
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:26657/websocket", ws)

	sock, err := Parse("unix:///tmp/node.sock")
	require.NoError(t, err)
	_, err = sock.HTTPURL()
	require.Error(t, err)
	_, err = sock.WebSocketURL()
	require.Error(t, err)
}
