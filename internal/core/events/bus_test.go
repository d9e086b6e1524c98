package events

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(TypeTimerTimeout, func(ev Event) error {
		got = append(got, ev)
		return nil
	})

	err := bus.Publish(New(TypeTimerTimeout, "Timer:root/Clock", 1.5))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, TypeTimerTimeout, got[0].Type)
	assert.Equal(t, "Timer:root/Clock", got[0].Source)
	assert.Equal(t, 1.5, got[0].Data)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestPublishOnlyMatchingType(t *testing.T) {
	bus := NewBus()

	var timer, scene int
	bus.Subscribe(TypeTimerTimeout, func(Event) error { timer++; return nil })
	bus.Subscribe(TypeSceneActivated, func(Event) error { scene++; return nil })

	require.NoError(t, bus.Publish(New(TypeTimerTimeout, "", nil)))
	assert.Equal(t, 1, timer)
	assert.Equal(t, 0, scene)

	// Publishing a type nobody listens to is a no-op.
	require.NoError(t, bus.Publish(New(TypeCollision, "", nil)))
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := NewBus()

	var calls int
	sub := bus.Subscribe(TypeSceneActivated, func(Event) error { calls++; return nil })
	assert.Equal(t, 1, bus.SubscriberCount(TypeSceneActivated))

	require.NoError(t, bus.Publish(New(TypeSceneActivated, "", nil)))
	sub.Cancel()
	sub.Cancel()
	require.NoError(t, bus.Publish(New(TypeSceneActivated, "", nil)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.SubscriberCount(TypeSceneActivated))
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	bus := NewBus()

	errA := errors.New("handler a failed")
	errB := errors.New("handler b failed")
	bus.Subscribe(TypeCollision, func(Event) error { return errA })
	bus.Subscribe(TypeCollision, func(Event) error { return errB })

	var delivered int
	bus.Subscribe(TypeCollision, func(Event) error { delivered++; return nil })

	err := bus.Publish(New(TypeCollision, "", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errA))
	assert.True(t, errors.Is(err, errB))

	// Errors do not stop delivery to the remaining handlers.
	assert.Equal(t, 1, delivered)
}

func TestPublishWithFilters(t *testing.T) {
	bus := NewBus()

	var calls int
	bus.Subscribe(TypeExportProgress, func(Event) error { calls++; return nil })

	fromWeb := func(ev Event) bool { return ev.Source == "web" }

	require.NoError(t, bus.PublishWithFilters(New(TypeExportProgress, "linux", nil), fromWeb))
	assert.Equal(t, 0, calls)

	require.NoError(t, bus.PublishWithFilters(New(TypeExportProgress, "web", nil), fromWeb))
	assert.Equal(t, 1, calls)
}

func TestPublishAsync(t *testing.T) {
	bus := NewBus()

	done := make(chan struct{})
	bus.Subscribe(TypeSceneDeactivated, func(Event) error {
		close(done)
		return errors.New("late failure")
	})

	errCh := bus.PublishAsync(New(TypeSceneDeactivated, "", nil))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
	assert.Error(t, <-errCh)

	// The channel is closed after the single result.
	_, open := <-errCh
	assert.False(t, open)
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus()

	var delivered atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := bus.Subscribe(TypeCollision, func(Event) error {
				delivered.Add(1)
				return nil
			})
			defer sub.Cancel()
		}()
		go func() {
			defer wg.Done()
			_ = bus.Publish(New(TypeCollision, "", nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, bus.SubscriberCount(TypeCollision))
}
