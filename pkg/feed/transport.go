package feed

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// PubSocket is a publisher-side messaging socket. Implementations wrap
// the underlying transport (mangos, ZeroMQ, or a mock for testing).
type PubSocket interface {
	io.Closer
	Listen(addr string) error
	Send(topic string, data []byte) error
}

// SocketFactory creates publisher sockets for a wire transport.
type SocketFactory interface {
	NewPubSocket() (PubSocket, error)
}

// WireConfig selects and addresses the outbound transport.
type WireConfig struct {
	Transport  string // "nng" or "zmq"; empty disables the wire feed
	Address    string // e.g. "tcp://*:9290"
	BufferSize int
}

// DefaultWireConfig returns the default wire feed configuration.
// The wire feed is off unless a transport is configured.
func DefaultWireConfig() WireConfig {
	return WireConfig{
		Address:    "tcp://*:9290",
		BufferSize: 1000,
	}
}

var (
	transportsMu sync.RWMutex
	transports   = make(map[string]SocketFactory)
)

// RegisterTransport makes a wire transport available under a name.
// Transport implementations register themselves from init, so only the
// transports compiled into the binary (build tags nng, zmq) appear.
func RegisterTransport(name string, factory SocketFactory) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = factory
}

// NewTransport returns the factory registered under name
func NewTransport(name string) (SocketFactory, error) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()

	factory, ok := transports[name]
	if !ok {
		return nil, fmt.Errorf("feed transport %q not built in (available: %v)", name, transportNames())
	}
	return factory, nil
}

// transportNames lists registered transports. Callers hold transportsMu.
func transportNames() []string {
	names := make([]string, 0, len(transports))
	for name := range transports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
