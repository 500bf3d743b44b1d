package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionalBus_FlushDeliversToMainBus(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan BalanceChangedEvent, 1)
	mainBus.Subscribe(EventTypeBalanceChanged, func(ctx context.Context, event Event) {
		if balanceEvent, ok := event.(BalanceChangedEvent); ok {
			received <- balanceEvent
		}
	})

	testEvent := BalanceChangedEvent{
		UserID:   1,
		FriendID: 2,
		Currency: "USD",
		Delta:    decimal.NewFromInt(5),
	}
	transactionalBus.Publish(testEvent)
	assert.Len(t, transactionalBus.Pending(), 1)

	transactionalBus.Flush(context.Background())
	assert.Empty(t, transactionalBus.Pending())

	select {
	case got := <-received:
		assert.Equal(t, testEvent.UserID, got.UserID)
		assert.True(t, got.Delta.Equal(testEvent.Delta))
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var mu sync.Mutex
	delivered := 0
	mainBus.Subscribe(EventTypeExpenseDeleted, func(ctx context.Context, event Event) {
		mu.Lock()
		defer mu.Unlock()
		delivered++
	})

	transactionalBus.Publish(ExpenseDeletedEvent{ExpenseID: 1, DeletedBy: 2})
	transactionalBus.Discard()
	transactionalBus.Flush(context.Background())
	mainBus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, delivered)
}

func TestBus_HandlerPanicIsRecovered(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe(EventTypeFriendRemoved, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeFriendRemoved, func(ctx context.Context, event Event) {
		defer wg.Done()
	})

	require.NotPanics(t, func() {
		bus.Emit(context.Background(), FriendRemovedEvent{UserID: 1, FriendID: 2})
		wg.Wait()
		bus.Wait()
	})
}

func TestAllEventTypes_Unique(t *testing.T) {
	seen := make(map[EventType]bool)
	for _, eventType := range AllEventTypes() {
		assert.False(t, seen[eventType], "duplicate event type %s", eventType)
		seen[eventType] = true
	}
	assert.Len(t, seen, 7)
}
