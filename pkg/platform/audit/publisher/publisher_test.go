package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "shadow/pkg/platform/audit"
	"shadow/pkg/platform/audit/store/memory"
	"shadow/pkg/requestcontext"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Subject: "alice.shadow",
		Action:  string(audit.EventDomainRegistered),
	})
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), "alice.shadow")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventDomainRegistered), events[0].Action)
	assert.Equal(t, audit.CategoryOwnership, events[0].Category)
	assert.NotEmpty(t, events[0].ID)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Subject: "alice.shadow",
			Action:  string(audit.EventDomainVerified),
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListBySubject(context.Background(), "alice.shadow")
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := NewPublisher(store, WithAsyncBuffer(1), WithMetrics(metrics))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var accepted int
	for range 50 {
		wg.Go(func() {
			if err := pub.Emit(context.Background(), audit.Event{Subject: "s", Action: "x"}); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		})
	}
	wg.Wait()
	pub.Close()

	events, err := store.ListBySubject(context.Background(), "s")
	require.NoError(t, err)
	assert.Len(t, events, accepted)
	assert.Equal(t, float64(accepted), testutil.ToFloat64(metrics.Emitted))
	assert.Equal(t, float64(50-accepted), testutil.ToFloat64(metrics.Dropped))
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()
	assert.ErrorIs(t, pub.Emit(context.Background(), audit.Event{Action: "x"}), ErrBufferFull)
}

func TestPublisher_UsesRequestTime(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	require.NoError(t, pub.Emit(ctx, audit.Event{Subject: "s", Action: "x"}))

	events, err := store.ListBySubject(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, at, events[0].Timestamp)
	assert.Equal(t, "req-42", events[0].RequestID)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: "s", Action: "x", Timestamp: customTime}))

	events, err := store.ListBySubject(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("down") }

func TestPublisher_SyncFailureIsReturned(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := NewPublisher(failingStore{}, WithMetrics(metrics))
	err := pub.Emit(context.Background(), audit.Event{Action: "x"})
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Failed))
}

func TestPublisher_AsyncFailureIsCounted(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := NewPublisher(failingStore{}, WithAsyncBuffer(8), WithMetrics(metrics))

	for range 3 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "x"}))
	}
	pub.Close()

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Emitted))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Failed))
}
