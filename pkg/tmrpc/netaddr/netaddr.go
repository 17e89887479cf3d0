// Package netaddr deals with Tendermint-style network addresses as they
// appear in node configs: "tcp://host:port", "unix:///path" and the
// peer form "tcp://nodeid@host:port".
package netaddr

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Scheme is the transport scheme of an address.
type Scheme string

const (
	// TCP is a tcp:// address.
	TCP Scheme = "tcp"
	// Unix is a unix:// socket address.
	Unix Scheme = "unix"
)

// Address is a parsed Tendermint network address.
type Address struct {
	Scheme Scheme
	// PeerID is the optional node ID prefix ("id@host:port" form).
	PeerID string
	Host   string
	Port   uint16
	// Path is the socket path for unix addresses.
	Path string
}

// Parse parses an address string. Addresses without a scheme are
// treated as tcp.
func Parse(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	var scheme = TCP
	rest := s
	if i := strings.Index(s, "://"); i >= 0 {
		switch s[:i] {
		case "tcp":
			scheme = TCP
		case "unix":
			scheme = Unix
		default:
			return Address{}, fmt.Errorf("unsupported address scheme: %q", s[:i])
		}
		rest = s[i+3:]
	}
	if scheme == Unix {
		if rest == "" {
			return Address{}, fmt.Errorf("empty unix socket path in %q", s)
		}
		return Address{Scheme: Unix, Path: rest}, nil
	}

	var peerID string
	if i := strings.Index(rest, "@"); i >= 0 {
		peerID = rest[:i]
		rest = rest[i+1:]
	}
	host, portStr, err := net.SplitHostPort(rest)
	if err != nil {
		return Address{}, fmt.Errorf("can't parse address %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("bad port in address %q: %w", s, err)
	}
	return Address{Scheme: TCP, PeerID: peerID, Host: host, Port: uint16(port)}, nil
}

// String reassembles the address into its canonical form.
func (a Address) String() string {
	if a.Scheme == Unix {
		return "unix://" + a.Path
	}
	if a.PeerID != "" {
		return fmt.Sprintf("tcp://%s@%s", a.PeerID, net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port))))
	}
	return "tcp://" + net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// HostPort returns the "host:port" part of a TCP address.
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// HTTPURL returns the base HTTP URL for talking to this address.
func (a Address) HTTPURL() (string, error) {
	if a.Scheme != TCP {
		return "", fmt.Errorf("can't construct HTTP URL for %s address", a.Scheme)
	}
	return "http://" + a.HostPort(), nil
}

// WebSocketURL returns the websocket endpoint URL exposed by a
// Tendermint node listening on this address.
func (a Address) WebSocketURL() (string, error) {
	if a.Scheme != TCP {
		return "", fmt.Errorf("can't construct websocket URL for %s address", a.Scheme)
	}
	return "ws://" + a.HostPort() + "/websocket", nil
}
