package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_ string, _ Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_ string, handlers int, err error, _ int64) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	var got []any
	sub, err := b.Subscribe("test.event", func(e Event) error {
		got = append(got, e.Data())
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, sub.ID())
	assert.Equal(t, "test.event", sub.EventType())

	require.NoError(t, b.Publish(NewEvent("test.event", "tester", 123)))
	require.NoError(t, b.Publish(NewEvent("other.event", "tester", 456)))
	assert.Equal(t, []any{123}, got)

	require.NoError(t, b.Unsubscribe(sub))
	assert.False(t, sub.IsActive())
	require.NoError(t, b.Publish(NewEvent("test.event", "tester", 789)))
	assert.Len(t, got, 1)
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestHandlersRunInSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	for i := 0; i < 8; i++ {
		_, err := b.Subscribe("e", func(Event) error {
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, b.Publish(NewEvent("e", "s", nil)))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, order)
}

func TestPublishBatchJoinsErrors(t *testing.T) {
	b := New()
	errA := errors.New("a")
	errB := errors.New("b")
	_, _ = b.Subscribe("a", func(Event) error { return errA })
	_, _ = b.Subscribe("b", func(Event) error { return errB })

	err := b.PublishBatch(NewEvent("a", "s", nil), NewEvent("b", "s", nil), NewEvent("c", "s", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestSubscribeRejectsNilHandler(t *testing.T) {
	_, err := New().Subscribe("x", nil)
	assert.Error(t, err)
}

func TestObserverMetricsOptional(t *testing.T) {
	b := New()
	_, _ = b.Subscribe("e", func(e Event) error { return nil })
	_ = b.Publish(NewEvent("e", "s", nil))
	assert.Zero(t, b.GetMetrics().Published)

	obs := &testObserver{}
	b.AddObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil))
	m := b.GetMetrics()
	assert.Equal(t, uint64(1), m.Published)
	assert.Equal(t, uint64(1), m.DeliveredHandlers)
	assert.Equal(t, uint64(1), m.SubscribersActive)
	assert.Equal(t, 1, obs.publishCount)
	assert.Equal(t, 1, obs.deliveredCount)

	b.RemoveObserver(obs)
	_ = b.Publish(NewEvent("e", "s", nil))
	assert.Equal(t, 1, obs.publishCount)
}
