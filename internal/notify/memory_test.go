package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToAuditSubscribersOnly(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	a1, cancel1 := hub.Subscribe("audit-1")
	defer cancel1()
	a2, cancel2 := hub.Subscribe("audit-2")
	defer cancel2()

	hub.Notify(ctx, "audit-1", EventAuditUpdated)

	select {
	case event := <-a1:
		assert.Equal(t, EventAuditUpdated, event)
	case <-time.After(time.Second):
		t.Fatal("subscriber of audit-1 received nothing")
	}

	select {
	case <-a2:
		t.Fatal("subscriber of audit-2 must not receive audit-1 events")
	default:
	}
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	first, cancelFirst := hub.Subscribe("audit-1")
	defer cancelFirst()
	second, cancelSecond := hub.Subscribe("audit-1")
	defer cancelSecond()

	hub.Notify(ctx, "audit-1", EventAuditUpdated)

	require.Equal(t, EventAuditUpdated, <-first)
	require.Equal(t, EventAuditUpdated, <-second)
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	events, cancel := hub.Subscribe("audit-1")
	cancel()

	// Publishing after cancel must not panic on the closed channel.
	hub.Notify(ctx, "audit-1", EventAuditUpdated)

	_, open := <-events
	assert.False(t, open)
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	_, cancel := hub.Subscribe("audit-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Notify(ctx, "audit-1", EventAuditUpdated)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "audit:a-1", ChannelFor("a-1"))
}
