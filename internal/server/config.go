package server

import (
	"net"
	"strconv"
	"time"
)

type HttpConfig struct {
	Host string `conf:"host"`
	Port int    `conf:"port"`
	H2c  bool   `conf:"h2c"`

	// ReadHeaderTimeout bounds the time to read request headers.
	ReadHeaderTimeout time.Duration `conf:"read_header_timeout"`
}

// Address returns the listen address of the server.
func (c HttpConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
