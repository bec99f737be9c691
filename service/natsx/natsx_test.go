package natsx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	failures int
	calls    int
	ids      []string
}

func (f *flakyPublisher) PublishOnce(_ context.Context, _ string, _ []byte, _ map[string]string, msgID string) error {
	f.calls++
	f.ids = append(f.ids, msgID)
	if f.calls <= f.failures {
		return errors.New("boom")
	}
	return nil
}

func TestSyncPublisherRetries(t *testing.T) {
	fp := &flakyPublisher{failures: 2}
	sp := &NatsxSyncPublisher{P: fp, Retries: 3, Backoff: time.Millisecond}

	require.NoError(t, sp.Publish(context.Background(), "transfer", []byte("x"), nil, "m-1"))
	assert.Equal(t, 3, fp.calls)
	assert.Equal(t, []string{"m-1", "m-1", "m-1"}, fp.ids)
}

func TestSyncPublisherGivesUp(t *testing.T) {
	fp := &flakyPublisher{failures: 10}
	sp := &NatsxSyncPublisher{P: fp, Retries: 1, Backoff: time.Millisecond}

	assert.Error(t, sp.Publish(context.Background(), "transfer", nil, nil, "m-1"))
	assert.Equal(t, 2, fp.calls)
}

func TestSyncPublisherStopsOnCancel(t *testing.T) {
	fp := &flakyPublisher{failures: 10}
	sp := &NatsxSyncPublisher{P: fp, Retries: 5, Backoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sp.Publish(ctx, "transfer", nil, nil, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fp.calls)
}

func TestToHeader(t *testing.T) {
	assert.Nil(t, ToHeader(nil))
	h := ToHeader(map[string]string{"k": "v"})
	assert.Equal(t, "v", h.Get("k"))
}

func TestRouteLookup(t *testing.T) {
	c := &NatsxClient{routes: map[string]NatsxRoute{}}
	require.Error(t, c.RegisterRoute(NatsxRoute{Biz: "transfer"}))
	require.NoError(t, c.RegisterRoute(NatsxRoute{Biz: "transfer", Subject: "pshare.transfers"}))

	r, ok := c.route("transfer")
	require.True(t, ok)
	assert.Equal(t, "pshare.transfers", r.Subject)

	err := NewNatsxProducer(c).Publish(context.Background(), "other", nil, nil)
	assert.Error(t, err)
}

func TestConfigOptions(t *testing.T) {
	plain := NatsxConfig{Servers: []string{"nats://127.0.0.1:4222"}}
	withAuth := NatsxConfig{Servers: []string{"nats://127.0.0.1:4222"}, User: "u", Password: "p"}
	assert.Len(t, withAuth.Options(), len(plain.Options())+1)
}
