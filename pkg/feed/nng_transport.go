//go:build nng
// +build nng

package feed

import (
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

func init() {
	RegisterTransport("nng", NewNNGSocketFactory())
}

// nngPubSocket wraps a mangos.Socket to implement PubSocket.
type nngPubSocket struct {
	sock mangos.Socket
}

func (s *nngPubSocket) Listen(addr string) error {
	return s.sock.Listen(addr)
}

// Send prepends the topic so SUB sockets can filter by prefix.
func (s *nngPubSocket) Send(topic string, data []byte) error {
	msg := make([]byte, 0, len(topic)+1+len(data))
	msg = append(msg, topic...)
	msg = append(msg, ':')
	msg = append(msg, data...)
	return s.sock.Send(msg)
}

func (s *nngPubSocket) Close() error {
	return s.sock.Close()
}

// NNGSocketFactory creates NNG/mangos publisher sockets.
type NNGSocketFactory struct{}

// NewNNGSocketFactory creates a new NNG socket factory.
func NewNNGSocketFactory() *NNGSocketFactory {
	return &NNGSocketFactory{}
}

func (f *NNGSocketFactory) NewPubSocket() (PubSocket, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, err
	}
	return &nngPubSocket{sock: sock}, nil
}

// Ensure NNGSocketFactory implements SocketFactory
var _ SocketFactory = (*NNGSocketFactory)(nil)
