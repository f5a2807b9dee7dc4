package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-task-service/internal/testutil"
)

func TestTriggerBus_PublishSubscribe(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	bus, err := NewTriggerBus(TriggerBusOptions{Client: client, Channel: "test:triggers"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan string, 2)
	subErr := make(chan error, 1)
	go func() {
		subErr <- bus.Subscribe(ctx, func(_ context.Context, jobID string) {
			select {
			case received <- jobID:
			default:
			}
		})
	}()

	// Publish until the subscription is live; pub/sub drops messages sent before it.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for got := ""; got == ""; {
		select {
		case got = <-received:
			assert.Equal(t, "job-42", got)
		case <-ticker.C:
			require.NoError(t, bus.PublishTrigger(context.Background(), "job-42"))
		case <-deadline:
			t.Fatal("trigger was not delivered")
		}
	}

	cancel()
	select {
	case err := <-subErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}

func TestTriggerBus_Validation(t *testing.T) {
	_, err := NewTriggerBus(TriggerBusOptions{})
	require.Error(t, err)

	bus, err := NewTriggerBus(TriggerBusOptions{Client: testutil.SetupTestRedis(t)})
	require.NoError(t, err)
	require.Error(t, bus.PublishTrigger(context.Background(), " "))
	require.Error(t, bus.Subscribe(context.Background(), nil))
}

func TestTriggerBus_IgnoresMalformedPayload(t *testing.T) {
	bus, err := NewTriggerBus(TriggerBusOptions{Client: testutil.SetupTestRedis(t)})
	require.NoError(t, err)

	called := false
	bus.dispatch(context.Background(), "not-json", func(context.Context, string) { called = true })
	bus.dispatch(context.Background(), `{"job_id":""}`, func(context.Context, string) { called = true })
	assert.False(t, called)
}
