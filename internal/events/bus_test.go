package events_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brobert48/nhl-led-scoreboard/internal/events"
	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := events.NewBus(logger.NewNoop())
	defer bus.Close()

	received := make(chan map[string]any, 1)
	bus.Subscribe("live_game", func(_ string, payload map[string]any) {
		received <- payload
	})

	bus.Publish("live_game", map[string]any{"games": []any{}})

	select {
	case payload := <-received:
		assert.Contains(t, payload, "games")
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the update")
	}
}

func TestPublishOnlyReachesMatchingDomain(t *testing.T) {
	bus := events.NewBus(logger.NewNoop())
	defer bus.Close()

	var mu sync.Mutex
	calls := 0
	bus.Subscribe("standings", func(string, map[string]any) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	bus.Publish("live_game", map[string]any{})
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := events.NewBus(logger.NewNoop())
	defer bus.Close()

	block := make(chan struct{})
	bus.Subscribe("live_game", func(string, map[string]any) {
		<-block
	})

	done := make(chan struct{})
	go func() {
		// Far more publishes than the subscriber buffer holds.
		for i := 0; i < 100; i++ {
			bus.Publish("live_game", map[string]any{"n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	close(block)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := events.NewBus(logger.NewNoop())
	defer bus.Close()

	received := make(chan struct{}, 8)
	id := bus.Subscribe("live_game", func(string, map[string]any) {
		received <- struct{}{}
	})

	bus.Publish("live_game", map[string]any{})

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("first publish not delivered")
	}

	bus.Unsubscribe("live_game", id)
	bus.Publish("live_game", map[string]any{})

	select {
	case <-received:
		t.Fatal("delivery after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseWaitsForInFlightDeliveries(t *testing.T) {
	bus := events.NewBus(logger.NewNoop())

	var mu sync.Mutex
	delivered := 0
	bus.Subscribe("live_game", func(string, map[string]any) {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	bus.Publish("live_game", map[string]any{})
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, delivered)

	// Publishing after close is a no-op.
	bus.Publish("live_game", map[string]any{})
}
