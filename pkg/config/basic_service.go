package config

import (
	"net"
	"strconv"
)

// BasicService is a simple base for optional auxiliary HTTP services
// like Pprof or Prometheus monitoring.
type BasicService struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Port    uint16 `toml:"port"`
}

// Addr returns the "host:port" bind address for the service.
func (s BasicService) Addr() string {
	return net.JoinHostPort(s.Address, strconv.FormatUint(uint64(s.Port), 10))
}
