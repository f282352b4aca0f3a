// Package feed distributes project change summaries to consumers: an
// in-process bus for SSE handlers and dashboards, plus an optional wire
// publisher (mangos or ZeroMQ) for consumers in other processes.
package feed

import (
	"context"

	"github.com/dd0wney/cluso-tara/pkg/logging"
	"github.com/dd0wney/cluso-tara/pkg/metrics"
	"github.com/dd0wney/cluso-tara/pkg/pubsub"
)

// Feed fans project events out to the in-process bus and, when
// configured, the wire publisher. Publishing never blocks the caller;
// slow in-process consumers lose events rather than stalling mutations.
type Feed struct {
	bus  *pubsub.PubSub
	wire *WirePublisher
	reg  *metrics.Registry
	log  logging.Logger
}

// Options configures a Feed.
type Options struct {
	// BufferSize is the per-subscription channel buffer (0 = default).
	BufferSize int
	// Wire is the optional outbound publisher. The Feed takes ownership
	// and stops it on Close.
	Wire *WirePublisher
	// Registry receives feed metrics when set.
	Registry *metrics.Registry
}

// New creates a Feed.
func New(opts Options) *Feed {
	return &Feed{
		bus:  pubsub.NewPubSub(opts.BufferSize),
		wire: opts.Wire,
		reg:  opts.Registry,
		log:  logging.DefaultLogger().With(logging.Component("feed")),
	}
}

// Publish sends an event to the broadcast topic for its type and, when
// the event names a project, to the per-project topic.
func (f *Feed) Publish(event *Event) {
	delivered, dropped := f.bus.Publish(Topic(event.Type), event)
	if event.ProjectID != "" {
		d, dr := f.bus.Publish(ProjectTopic(event.Type, event.ProjectID), event)
		delivered += d
		dropped += dr
	}

	f.log.Debug("feed event published",
		logging.String("type", string(event.Type)),
		logging.ProjectID(event.ProjectID),
		logging.Int("delivered", delivered),
		logging.Int("dropped", dropped))

	if f.reg != nil {
		f.reg.RecordFeedPublish("bus", "success")
		if dropped > 0 {
			f.reg.RecordFeedPublish("bus", "dropped")
		}
		f.reg.FeedSubscribers.Set(float64(f.bus.TotalSubscribers()))
	}

	if f.wire != nil {
		status := "success"
		if err := f.wire.Publish(event); err != nil {
			status = "error"
			f.log.Warn("wire feed publish failed",
				logging.String("type", string(event.Type)),
				logging.Error(err))
		}
		if f.reg != nil {
			f.reg.RecordFeedPublish(f.wire.Transport(), status)
		}
	}
}

// Subscribe listens for all events of a type
func (f *Feed) Subscribe(ctx context.Context, eventType EventType) (*pubsub.Subscription, error) {
	sub, err := f.bus.Subscribe(ctx, Topic(eventType))
	f.updateSubscriberGauge()
	return sub, err
}

// SubscribeProject listens for events of a type for one project
func (f *Feed) SubscribeProject(ctx context.Context, eventType EventType, projectID string) (*pubsub.Subscription, error) {
	sub, err := f.bus.Subscribe(ctx, ProjectTopic(eventType, projectID))
	f.updateSubscriberGauge()
	return sub, err
}

// SubscriberCount returns the number of subscriptions across all topics
func (f *Feed) SubscriberCount() int {
	return f.bus.TotalSubscribers()
}

// WireEnabled reports whether an outbound wire publisher is configured.
func (f *Feed) WireEnabled() bool {
	return f.wire != nil
}

// WireRunning reports whether the wire publisher is bound and serving.
func (f *Feed) WireRunning() bool {
	return f.wire != nil && f.wire.Running()
}

func (f *Feed) updateSubscriberGauge() {
	if f.reg != nil {
		f.reg.FeedSubscribers.Set(float64(f.bus.TotalSubscribers()))
	}
}

// Close shuts down the bus and stops the wire publisher.
func (f *Feed) Close() error {
	f.bus.Shutdown()
	if f.wire != nil {
		return f.wire.Stop()
	}
	return nil
}
