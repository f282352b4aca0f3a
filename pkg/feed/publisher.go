package feed

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-tara/pkg/logging"
)

// WirePublisher pushes feed events to external subscribers over a
// messaging socket. Single responsibility: fan-out summaries to
// consumers outside the process.
type WirePublisher struct {
	socket    PubSocket
	transport string
	addr      string
	stream    chan *Event
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
	log       logging.Logger
}

// NewWirePublisher creates a wire publisher for the configured transport.
func NewWirePublisher(config WireConfig) (*WirePublisher, error) {
	factory, err := NewTransport(config.Transport)
	if err != nil {
		return nil, err
	}
	return newWirePublisher(factory, config)
}

// newWirePublisher wires an explicit factory, used directly by tests.
func newWirePublisher(factory SocketFactory, config WireConfig) (*WirePublisher, error) {
	socket, err := factory.NewPubSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	bufSize := config.BufferSize
	if bufSize <= 0 {
		bufSize = 1000
	}

	return &WirePublisher{
		socket:    socket,
		transport: config.Transport,
		addr:      config.Address,
		stream:    make(chan *Event, bufSize),
		stopCh:    make(chan struct{}),
		log:       logging.DefaultLogger().With(logging.Component("feed")),
	}, nil
}

// Transport returns the wire transport name
func (p *WirePublisher) Transport() string {
	return p.transport
}

// Running reports whether the publisher is bound and serving.
func (p *WirePublisher) Running() bool {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()
	return p.running
}

// Start binds the socket and begins publishing events.
func (p *WirePublisher) Start() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return fmt.Errorf("wire publisher already running")
	}

	if err := p.socket.Listen(p.addr); err != nil {
		return fmt.Errorf("failed to bind PUB socket to %s: %w", p.addr, err)
	}

	p.running = true
	p.wg.Add(1)
	go p.publishLoop()

	p.log.Info("wire feed publisher started",
		logging.String("transport", p.transport),
		logging.String("addr", p.addr))
	return nil
}

// Stop stops the publisher.
func (p *WirePublisher) Stop() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if !p.running {
		return nil
	}

	close(p.stopCh)
	p.running = false
	p.wg.Wait()

	if err := p.socket.Close(); err != nil {
		p.log.Warn("failed to close wire feed socket", logging.Error(err))
	}

	p.log.Info("wire feed publisher stopped")
	return nil
}

// Publish queues an event for the wire.
func (p *WirePublisher) Publish(event *Event) error {
	select {
	case p.stream <- event:
		return nil
	case <-p.stopCh:
		return fmt.Errorf("wire publisher stopped")
	}
}

func (p *WirePublisher) publishLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case event := <-p.stream:
			data, err := json.Marshal(event)
			if err != nil {
				p.log.Error("failed to marshal feed event", logging.Error(err))
				continue
			}

			// Topic frame lets subscribers filter by event type
			if err := p.socket.Send(Topic(event.Type), data); err != nil {
				p.log.Error("failed to publish feed event",
					logging.String("type", string(event.Type)),
					logging.Error(err))
			}
		}
	}
}
