package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MosandosSantos/cronos-sub000/internal/config"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
	written   []kafka.Message
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		if err := m.writeFunc(ctx, msgs...); err != nil {
			return err
		}
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestProducer(w *mockKafkaWriter) *Producer {
	return NewProducerWithWriter(w, logging.NewNopLogger())
}

func TestValidateProducerConfig(t *testing.T) {
	assert.NoError(t, ValidateProducerConfig(config.KafkaConfig{Brokers: []string{"localhost:9092"}}))

	err := ValidateProducerConfig(config.KafkaConfig{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))

	err = ValidateProducerConfig(config.KafkaConfig{Brokers: []string{"b:9092"}, MaxRetries: -1})
	assert.Error(t, err)
}

func TestNewProducer_RejectsEmptyBrokers(t *testing.T) {
	p, err := NewProducer(config.KafkaConfig{}, logging.NewNopLogger())
	assert.Nil(t, p)
	assert.Error(t, err)
}

func TestRequiredAcksAndCompression(t *testing.T) {
	assert.Equal(t, kafka.RequireAll, requiredAcks("all"))
	assert.Equal(t, kafka.RequireNone, requiredAcks("none"))
	assert.Equal(t, kafka.RequireOne, requiredAcks(""))

	assert.Equal(t, kafka.Zstd, compression("zstd"))
	assert.Equal(t, kafka.Compression(0), compression("brotli"))
}

func TestPublish_Success(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), &ProducerMessage{
		Topic:   "digest",
		Key:     []byte("tenant-a"),
		Value:   []byte(`{"x":1}`),
		Headers: map[string]string{"event_type": "t"},
	})
	require.NoError(t, err)
	require.Len(t, w.written, 1)
	assert.Equal(t, "digest", w.written[0].Topic)
	assert.Equal(t, "tenant-a", string(w.written[0].Key))
	assert.False(t, w.written[0].Time.IsZero())
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("t")}}, w.written[0].Headers)
	assert.Equal(t, int64(1), p.Metrics().MessagesSent.Load())
	assert.Equal(t, int64(7), p.Metrics().BytesSent.Load())
}

func TestPublish_Validation(t *testing.T) {
	p := newTestProducer(&mockKafkaWriter{})
	ctx := context.Background()

	assert.Error(t, p.Publish(ctx, &ProducerMessage{Value: []byte("v")}))
	assert.Error(t, p.Publish(ctx, &ProducerMessage{Topic: "t"}))
	big := []byte(strings.Repeat("x", defaultMaxMessageBytes+1))
	assert.Error(t, p.Publish(ctx, &ProducerMessage{Topic: "t", Value: big}))
}

func TestPublish_WriteFailure(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		return errors.New("leader not available")
	}}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeMessagingError))
	assert.Equal(t, int64(1), p.Metrics().MessagesFailed.Load())
}

func TestClose_Idempotent(t *testing.T) {
	closes := 0
	w := &mockKafkaWriter{closeFunc: func() error {
		closes++
		return nil
	}}
	p := newTestProducer(w)

	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.Equal(t, 1, closes)
	assert.Equal(t, ErrProducerClosed, p.Publish(context.Background(), &ProducerMessage{Topic: "t", Value: []byte("v")}))
}
