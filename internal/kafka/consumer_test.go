package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"

	"reservation-service/internal/models"
)

// fakeReader plays back a scripted sequence of fetch results and cancels the
// consumer once the script is exhausted
type fakeReader struct {
	fetches     []fetchResult
	pos         int
	fetchTimes  []time.Time
	committed   []kafka.Message
	onExhausted func()
}

type fetchResult struct {
	msg kafka.Message
	err error
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if f.pos >= len(f.fetches) {
		f.onExhausted()
		return kafka.Message{}, context.Canceled
	}
	f.fetchTimes = append(f.fetchTimes, time.Now())
	r := f.fetches[f.pos]
	f.pos++
	return r.msg, r.err
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

type recordingHandler struct {
	events []*models.NotificationEvent
}

func (h *recordingHandler) HandleNotification(ctx context.Context, event *models.NotificationEvent) error {
	h.events = append(h.events, event)
	return nil
}

func notificationMessage(t *testing.T, event *models.NotificationEvent) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	assert.NoError(t, err)
	return kafka.Message{Key: []byte(event.ItemCode), Value: payload}
}

func TestConsumer_BacksOffAfterFetchError(t *testing.T) {
	event := &models.NotificationEvent{
		EventID:   "evt-1",
		EventType: models.EventTypeItemQuarantined,
		ItemCode:  "PUMP-7",
	}
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		fetches: []fetchResult{
			{err: errors.New("broker unreachable")},
			{msg: notificationMessage(t, event)},
		},
		onExhausted: cancel,
	}
	consumer := &Consumer{reader: reader, backoff: 30 * time.Millisecond}
	handler := &recordingHandler{}

	err := consumer.ConsumeNotifications(ctx, handler)

	assert.NoError(t, err)
	assert.Len(t, handler.events, 1)
	assert.Equal(t, "evt-1", handler.events[0].EventID)
	assert.Len(t, reader.committed, 1)

	// The retry after the fetch error must wait out the backoff instead of
	// spinning straight back into FetchMessage
	assert.Len(t, reader.fetchTimes, 2)
	assert.GreaterOrEqual(t, reader.fetchTimes[1].Sub(reader.fetchTimes[0]), consumer.backoff)
}

func TestConsumer_BackoffRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		fetches: []fetchResult{
			{err: errors.New("broker unreachable")},
		},
		onExhausted: cancel,
	}
	consumer := &Consumer{reader: reader, backoff: time.Hour}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := consumer.ConsumeNotifications(ctx, &recordingHandler{})

	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConsumer_MalformedPayloadCommittedAndSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		fetches: []fetchResult{
			{msg: kafka.Message{Key: []byte("PUMP-7"), Value: []byte("not json")}},
		},
		onExhausted: cancel,
	}
	consumer := &Consumer{reader: reader, backoff: time.Millisecond}
	handler := &recordingHandler{}

	err := consumer.ConsumeNotifications(ctx, handler)

	assert.NoError(t, err)
	assert.Empty(t, handler.events)
	assert.Len(t, reader.committed, 1)
}
