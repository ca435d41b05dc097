package kafka

import (
	"context"
	"time"
)

// Publisher is the subset of Producer the emitter needs.
type Publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// EventSink wraps payloads in an EventEnvelope and writes them to one topic,
// keyed so that events for the same tenant stay on one partition.
type EventSink struct {
	publisher Publisher
	topic     string
	now       func() time.Time
}

func NewEventSink(p Publisher, topic string) *EventSink {
	if topic == "" {
		topic = TopicDigest
	}
	return &EventSink{publisher: p, topic: topic, now: time.Now}
}

func (s *EventSink) Emit(ctx context.Context, eventType, key string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, SourceService, payload, s.now())
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(s.topic, []byte(key))
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, msg)
}
