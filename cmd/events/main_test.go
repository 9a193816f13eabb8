package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rizkirmdhn/universal-media-downloader/internal/common/messaging"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	subscribeErr error
	errs         chan error
	queue        string
	binding      string
}

func (f *fakeClient) PublishJSON(ctx context.Context, routingKey string, data interface{}) error {
	return nil
}

func (f *fakeClient) Subscribe(ctx context.Context, queueName, bindingKey string, handler messaging.Handler) error {
	f.queue, f.binding = queueName, bindingKey
	return f.subscribeErr
}

func (f *fakeClient) Errors() <-chan error { return f.errs }

func (f *fakeClient) Close() error { return nil }

func TestConsumeStopsOnShutdown(t *testing.T) {
	log, _ := test.NewNullLogger()
	client := &fakeClient{errs: make(chan error, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, consume(ctx, client, "activity", "download.*", log))
	assert.Equal(t, "activity", client.queue)
	assert.Equal(t, "download.*", client.binding)
}

func TestConsumeFailsWhenConnectionIsLost(t *testing.T) {
	log, _ := test.NewNullLogger()
	lost := errors.New("failed to reconnect to RabbitMQ after 5 attempts")
	client := &fakeClient{errs: make(chan error, 1)}
	client.errs <- lost

	err := consume(context.Background(), client, "activity", "download.*", log)
	assert.ErrorIs(t, err, lost)
}

func TestConsumeSubscribeError(t *testing.T) {
	log, _ := test.NewNullLogger()
	client := &fakeClient{subscribeErr: messaging.ErrNotConnected}

	err := consume(context.Background(), client, "activity", "download.*", log)
	assert.ErrorIs(t, err, messaging.ErrNotConnected)
}
