// Package events provides the in-process publish/subscribe bus that fans
// out chat events to active subscribers.
package events

import (
	"context"
	"log/slog"
	"sync"

	"chat-api/domain/chat"
)

// Topic is a named channel subscribers register against and publishers
// post payloads to.
type Topic string

const TopicMessageAdded Topic = "MESSAGE_ADDED"

// Recorder receives per-delivery outcomes. Implementations must be safe
// for concurrent use. A nil Recorder disables recording.
type Recorder interface {
	EventDelivered(topic string)
	EventDropped(topic string)
}

type subscriber struct {
	id      int
	topic   Topic
	deliver chan chat.Message
}

// Bus broadcasts published messages to every subscriber currently
// registered on a topic. It provides best-effort fan-out: subscribers
// that joined after a publish never receive that event, and a subscriber
// whose buffer is full loses the event rather than blocking the publisher.
//
// Bus is constructed by the composition root and injected where needed;
// it holds no package-level state. Safe for concurrent use.
type Bus struct {
	log        *slog.Logger
	bufferSize int
	recorder   Recorder

	mu          sync.Mutex
	nextID      int
	subscribers map[Topic][]*subscriber
}

func NewBus(log *slog.Logger, bufferSize int, recorder Recorder) *Bus {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Bus{
		log:         log,
		bufferSize:  bufferSize,
		recorder:    recorder,
		subscribers: make(map[Topic][]*subscriber),
	}
}

// Subscribe registers against a topic and returns the delivery channel.
// The registration lives exactly as long as ctx: cancellation removes it
// from the bus and closes the channel, so a disconnecting consumer can
// never leak its slot in the subscriber list.
func (b *Bus) Subscribe(ctx context.Context, topic Topic) <-chan chat.Message {
	b.mu.Lock()
	b.nextID++
	sub := &subscriber{
		id:      b.nextID,
		topic:   topic,
		deliver: make(chan chat.Message, b.bufferSize),
	}
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(sub)
	}()

	return sub.deliver
}

func (b *Bus) unsubscribe(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[sub.topic]
	for i, candidate := range subs {
		if candidate.id == sub.id {
			b.subscribers[sub.topic] = append(subs[:i], subs[i+1:]...)
			close(sub.deliver)
			return
		}
	}
}

// Publish hands the message to all currently-registered subscribers of
// the topic, in registration order. There is no replay or backlog.
func (b *Bus) Publish(topic Topic, message chat.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers[topic] {
		select {
		case sub.deliver <- message:
			if b.recorder != nil {
				b.recorder.EventDelivered(string(topic))
			}
		default:
			b.log.Debug("subscriber buffer full, event lost",
				"topic", topic, "subscriber_id", sub.id)
			if b.recorder != nil {
				b.recorder.EventDropped(string(topic))
			}
		}
	}
}

// SubscriberCount reports the number of active registrations on a topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[topic])
}
