//go:build zmq
// +build zmq

package feed

import (
	zmq "github.com/pebbe/zmq4"
)

func init() {
	RegisterTransport("zmq", NewZMQSocketFactory())
}

// zmqPubSocket wraps a ZeroMQ PUB socket to implement PubSocket.
type zmqPubSocket struct {
	sock *zmq.Socket
}

func (s *zmqPubSocket) Listen(addr string) error {
	return s.sock.Bind(addr)
}

// Send uses a multipart message with the topic as the first frame, the
// conventional ZeroMQ form for SUB-side prefix filtering.
func (s *zmqPubSocket) Send(topic string, data []byte) error {
	_, err := s.sock.SendMessage(topic, data)
	return err
}

func (s *zmqPubSocket) Close() error {
	return s.sock.Close()
}

// ZMQSocketFactory creates ZeroMQ publisher sockets.
type ZMQSocketFactory struct{}

// NewZMQSocketFactory creates a new ZeroMQ socket factory.
func NewZMQSocketFactory() *ZMQSocketFactory {
	return &ZMQSocketFactory{}
}

func (f *ZMQSocketFactory) NewPubSocket() (PubSocket, error) {
	sock, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, err
	}
	return &zmqPubSocket{sock: sock}, nil
}

// Ensure ZMQSocketFactory implements SocketFactory
var _ SocketFactory = (*ZMQSocketFactory)(nil)
