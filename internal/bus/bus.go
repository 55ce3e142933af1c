package bus

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/cskr/pubsub"
)

const defaultCapacity = 128

type Subscription chan any

type Publisher interface {
	Publish(topic string, msg any)
}

type MessageBus interface {
	Publisher
	Subscribe(topics ...string) Subscription
	Unsubscribe(ch Subscription, topics ...string)
	Close()
}

type PubSubBus struct {
	ps     *pubsub.PubSub
	logger *slog.Logger
}

func New(logger *slog.Logger) *PubSubBus {
	if logger == nil {
		logger = slog.Default().With("component", "bus")
	}

	return &PubSubBus{
		ps:     pubsub.New(defaultCapacity),
		logger: logger,
	}
}

func (b *PubSubBus) Publish(topic string, msg any) {
	b.logger.Debug("publish", "topic", topic, "payload_type", payloadType(msg))
	b.ps.Pub(msg, topic)
}

func (b *PubSubBus) Subscribe(topics ...string) Subscription {
	ch := b.ps.Sub(topics...)
	b.logger.Debug("subscribe", "topics", topics)

	return ch
}

func (b *PubSubBus) Unsubscribe(ch Subscription, topics ...string) {
	if len(topics) == 0 {
		b.ps.Unsub(ch)
		b.logger.Debug("unsubscribe", "mode", "all")

		return
	}
	b.ps.Unsub(ch, topics...)
	b.logger.Debug("unsubscribe", "topics", topics)
}

func (b *PubSubBus) Close() {
	b.ps.Shutdown()
}

// Listen delivers messages of the given topics to fn until ctx is done or
// the bus is closed. The returned channel is closed when delivery stops.
func Listen(ctx context.Context, b MessageBus, fn func(msg any), topics ...string) <-chan struct{} {
	done := make(chan struct{})
	sub := b.Subscribe(topics...)
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				drainUnsubscribe(b, sub)

				return
			case msg, ok := <-sub:
				if !ok {
					// Closed bus: unsubscribing now would block.
					return
				}
				fn(msg)
			}
		}
	}()

	return done
}

// drainUnsubscribe keeps reading while unsubscribing so a publisher blocked
// on a full channel can finish.
func drainUnsubscribe(b MessageBus, sub Subscription) {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		b.Unsubscribe(sub)
	}()
	for {
		select {
		case <-finished:
			return
		case _, ok := <-sub:
			if !ok {
				<-finished

				return
			}
		}
	}
}

// Discard is a Publisher that drops every message.
type Discard struct{}

func (Discard) Publish(string, any) {}

func payloadType(v any) string {
	if v == nil {
		return "<nil>"
	}

	return reflect.TypeOf(v).String()
}
