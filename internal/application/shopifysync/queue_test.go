package shopifysync_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/application/dto"
	"github.com/onlyperf/warehouse-api/internal/application/shopifysync"
)

func TestQueue_RunsTasksAndDrainsOnStop(t *testing.T) {
	q := shopifysync.NewQueue(shopifysync.QueueConfig{Workers: 3, Size: 50, Timeout: time.Second}, zerolog.Nop())
	q.Start(context.Background())

	var done atomic.Int32
	for i := 0; i < 20; i++ {
		require.True(t, q.Enqueue(shopifysync.Task{Name: "t", Run: func(context.Context) error {
			done.Add(1)
			return nil
		}}))
	}
	q.Stop()

	assert.Equal(t, int32(20), done.Load())
	st := q.Stats()
	assert.EqualValues(t, 20, st.Enqueued)
	assert.EqualValues(t, 20, st.Succeeded)
	assert.False(t, q.Enqueue(shopifysync.Task{Name: "late", Run: func(context.Context) error { return nil }}))
}

func TestQueue_FullQueueDropsWithoutBlocking(t *testing.T) {
	q := shopifysync.NewQueue(shopifysync.QueueConfig{Workers: 1, Size: 2}, zerolog.Nop())
	noop := shopifysync.Task{Name: "t", Run: func(context.Context) error { return nil }}

	assert.True(t, q.Enqueue(noop))
	assert.True(t, q.Enqueue(noop))
	assert.False(t, q.Enqueue(noop))

	st := q.Stats()
	assert.EqualValues(t, 1, st.Dropped)
	assert.Equal(t, 2, st.Pending)

	q.Start(context.Background())
	q.Stop()
	assert.EqualValues(t, 2, q.Stats().Succeeded)
}

func TestQueue_RetriesUntilMaxAttempts(t *testing.T) {
	q := shopifysync.NewQueue(shopifysync.QueueConfig{
		Workers: 1, Size: 10, MaxAttempts: 3, RetryBase: time.Millisecond, Timeout: time.Second,
	}, zerolog.Nop())
	q.Start(context.Background())

	var attempts atomic.Int32
	q.Enqueue(shopifysync.Task{Name: "flaky", Run: func(context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("transitorio")
		}
		return nil
	}})
	require.Eventually(t, func() bool { return q.Stats().Succeeded == 1 }, 2*time.Second, 5*time.Millisecond)
	q.Stop()

	assert.Equal(t, int32(3), attempts.Load())
	assert.EqualValues(t, 2, q.Stats().Retried)
	assert.EqualValues(t, 0, q.Stats().Failed)
}

func TestQueue_PanicCountsAsFailure(t *testing.T) {
	q := shopifysync.NewQueue(shopifysync.QueueConfig{Workers: 1, Size: 1}, zerolog.Nop())
	q.Start(context.Background())
	q.Enqueue(shopifysync.Task{Name: "boom", Run: func(context.Context) error { panic("x") }})
	q.Stop()

	assert.EqualValues(t, 1, q.Stats().Failed)
}

type recordingNotifier struct{ events []dto.WarehouseSyncEvent }

func (r *recordingNotifier) Notify(_ context.Context, ev dto.WarehouseSyncEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func TestDispatcher_InventorySyncRunsThroughQueue(t *testing.T) {
	f := newFixture(t, true)
	f.product(t, "p1", "SKU1")
	f.mapping(t, "p1")
	f.units(t, "p1", "received")

	q := shopifysync.NewQueue(shopifysync.QueueConfig{Workers: 1, Size: 10}, zerolog.Nop())
	n := &recordingNotifier{}
	d := shopifysync.NewDispatcher(q, f.svc, n)
	q.Start(context.Background())

	d.QueueInventorySync(org, "p1", "p1", "")
	d.QueuePortalEvent(org, dto.WarehouseSyncEvent{Event: dto.EventProductSold, Data: dto.WarehouseSyncData{QRCode: "ABCD1234"}})
	q.Stop()

	assert.Equal(t, 1, f.api.levels["ii-p1"])
	require.Len(t, n.events, 1)
	assert.Equal(t, "ABCD1234", n.events[0].Data.QRCode)
	assert.EqualValues(t, 2, q.Stats().Succeeded)
}
