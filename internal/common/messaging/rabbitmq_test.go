package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/config"
	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRabbitMQClientRequiresURL(t *testing.T) {
	_, err := NewRabbitMQClient(&config.RabbitMQConfig{Exchange: "media_events"}, logrus.New())
	assert.EqualError(t, err, "rabbitmq URL is required")
}

func TestNewRabbitMQClientRequiresExchange(t *testing.T) {
	_, err := NewRabbitMQClient(&config.RabbitMQConfig{URL: "amqp://localhost"}, logrus.New())
	assert.EqualError(t, err, "rabbitmq exchange name is required")
}

func TestPublishWithoutChannel(t *testing.T) {
	c := &RabbitMQClient{config: &config.RabbitMQConfig{Exchange: "media_events"}, log: logrus.New()}
	err := c.PublishJSON(context.Background(), config.RoutingDownloadStarted, map[string]string{"a": "b"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestNotifyLogsPublishFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	c := &RabbitMQClient{config: &config.RabbitMQConfig{Exchange: "media_events"}, log: log}

	c.Notify(context.Background(), models.ActivityEvent{Type: models.ActivityDownloadFailed})

	entry := hook.LastEntry()
	if assert.NotNil(t, entry) {
		assert.Equal(t, logrus.WarnLevel, entry.Level)
		assert.Equal(t, models.ActivityDownloadFailed, entry.Data["event"])
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	c := &RabbitMQClient{config: &config.RabbitMQConfig{}, log: logrus.New()}
	assert.NoError(t, c.Close())
}

func TestSubscribeWithoutChannel(t *testing.T) {
	c := &RabbitMQClient{config: &config.RabbitMQConfig{Exchange: "media_events"}, log: logrus.New()}
	err := c.Subscribe(context.Background(), "activity", "download.*", func(string, []byte) error { return nil })
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, c.subs)
}

type ackRecord struct {
	tag     uint64
	ack     bool
	requeue bool
}

type recordingAcker struct {
	mu      sync.Mutex
	records []ackRecord
}

func (a *recordingAcker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, ackRecord{tag: tag, ack: true})
	return nil
}

func (a *recordingAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, ackRecord{tag: tag, requeue: requeue})
	return nil
}

func (a *recordingAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestConsumeReportsClosedChannel(t *testing.T) {
	c := &RabbitMQClient{config: &config.RabbitMQConfig{}, log: logrus.New()}
	acker := &recordingAcker{}

	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, RoutingKey: "download.started"}
	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, RoutingKey: "download.bad"}
	msgs <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 3, RoutingKey: "download.retry"}
	close(msgs)

	handler := func(routingKey string, body []byte) error {
		switch routingKey {
		case "download.bad":
			return ErrMalformed
		case "download.retry":
			return errors.New("temporary")
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- c.consume(context.Background(), msgs, handler) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrConsumerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not notice the closed channel")
	}

	assert.Equal(t, []ackRecord{
		{tag: 1, ack: true},
		{tag: 2, requeue: false},
		{tag: 3, requeue: true},
	}, acker.records)
}

func TestConsumeStopsOnContext(t *testing.T) {
	c := &RabbitMQClient{config: &config.RabbitMQConfig{}, log: logrus.New()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.consume(ctx, make(chan amqp.Delivery), func(string, []byte) error { return nil })
	assert.NoError(t, err)
}

func TestResubscribeWithoutChannel(t *testing.T) {
	c := &RabbitMQClient{config: &config.RabbitMQConfig{Exchange: "media_events"}, log: logrus.New()}
	handler := func(string, []byte) error { return nil }

	stopped, cancel := context.WithCancel(context.Background())
	cancel()
	c.subs = []subscription{{ctx: stopped, queue: "old", binding: "#", handler: handler}}
	assert.NoError(t, c.resubscribe())

	c.subs = append(c.subs, subscription{ctx: context.Background(), queue: "activity", binding: "download.*", handler: handler})
	err := c.resubscribe()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Contains(t, err.Error(), "queue activity")
	assert.NotContains(t, err.Error(), "queue old")
}

func TestFailIsReportedOnce(t *testing.T) {
	c := &RabbitMQClient{errs: make(chan error, 1)}
	first := errors.New("reconnect failed")

	c.fail(first)
	c.fail(errors.New("dropped"))

	select {
	case err := <-c.Errors():
		assert.Equal(t, first, err)
	default:
		t.Fatal("expected a reported failure")
	}
	select {
	case err := <-c.Errors():
		t.Fatalf("unexpected second failure: %v", err)
	default:
	}
}
