package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type writerStub struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *writerStub) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *writerStub) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherEncodesEvent(t *testing.T) {
	writer := &writerStub{}
	publisher := NewKafkaPublisherWithWriter(writer, slog.New(slog.NewTextHandler(io.Discard, nil)))

	event := New(VideoPublished, "user-1", map[string]any{"videoId": "v-1"})
	require.NoError(t, publisher.Publish(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "user-1", string(msg.Key))
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, VideoPublished, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, VideoPublished, decoded.Type)
	assert.Equal(t, "v-1", decoded.Data["videoId"])

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisherWrapsWriterErrors(t *testing.T) {
	publisher := NewKafkaPublisherWithWriter(&writerStub{err: errors.New("broker down")}, nil)

	err := publisher.Publish(context.Background(), New(UserRegistered, "user-1", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), UserRegistered)
}

func TestNopPublisher(t *testing.T) {
	var publisher Publisher = Nop{}
	assert.NoError(t, publisher.Publish(context.Background(), New(SubscriptionCreated, "k", nil)))
	assert.NoError(t, publisher.Close())
}
