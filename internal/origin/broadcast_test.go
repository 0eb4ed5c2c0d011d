package origin_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loggerapp/logger-api/internal/origin"
)

const refreshChannel = "origins:refresh"

// newRedisClient starts an in-process miniredis and returns a client for it.
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// listen starts b.Listen in the background and waits for the subscription.
func listen(t *testing.T, b *origin.Broadcaster, l origin.Loader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- b.Listen(ctx, l, ready) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not confirmed")
	}
}

func TestBroadcaster_PeerMessageTriggersLoad(t *testing.T) {
	client := newRedisClient(t)
	self := origin.NewBroadcaster(client, refreshChannel, discardLogger())
	peer := origin.NewBroadcaster(client, refreshChannel, discardLogger())
	require.NotEqual(t, self.InstanceID(), peer.InstanceID())

	l := &countingLoader{}
	listen(t, self, l)

	require.NoError(t, peer.Publish(context.Background()))

	require.Eventually(t, func() bool { return l.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcaster_OwnMessageIgnored(t *testing.T) {
	client := newRedisClient(t)
	self := origin.NewBroadcaster(client, refreshChannel, discardLogger())
	peer := origin.NewBroadcaster(client, refreshChannel, discardLogger())

	l := &countingLoader{}
	listen(t, self, l)

	require.NoError(t, self.Publish(context.Background()))
	// A peer message sent afterwards proves the own message was consumed.
	require.NoError(t, peer.Publish(context.Background()))

	require.Eventually(t, func() bool { return l.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, l.calls.Load())
}

func TestTrigger_ReloadsAndBroadcasts(t *testing.T) {
	client := newRedisClient(t)
	self := origin.NewBroadcaster(client, refreshChannel, discardLogger())
	peer := origin.NewBroadcaster(client, refreshChannel, discardLogger())

	peerLoader := &countingLoader{}
	listen(t, peer, peerLoader)

	local := &countingLoader{}
	trigger := origin.NewTrigger(local, self, discardLogger())

	require.NoError(t, trigger.Refresh(context.Background()))

	assert.EqualValues(t, 1, local.calls.Load())
	require.Eventually(t, func() bool { return peerLoader.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestTrigger_LoadFailureReturned(t *testing.T) {
	local := &countingLoader{err: errors.New("boom")}
	trigger := origin.NewTrigger(local, nil, discardLogger())

	err := trigger.Refresh(context.Background())

	assert.ErrorContains(t, err, "boom")
}
