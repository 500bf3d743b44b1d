package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"splitledger/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func TestSubjectForEventType(t *testing.T) {
	assert.Equal(t, "splitledger.balance_changed", SubjectForEventType(events.EventTypeBalanceChanged))

	subjects := AllSubjects()
	assert.Len(t, subjects, len(events.AllEventTypes()))
	assert.Contains(t, subjects, "splitledger.splitwise_import_finished")
}

func TestEventForwarder_Forward(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockMessagePublisher)
	forwarder := NewEventForwarder(publisher)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	forwarder.now = func() time.Time { return fixed }

	event := events.BalanceChangedEvent{
		UserID:   1,
		FriendID: 2,
		Currency: "USD",
		Delta:    decimal.RequireFromString("12.5"),
	}

	var published []byte
	publisher.On("Publish", ctx, "splitledger.balance_changed", mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(nil)

	require.NoError(t, forwarder.Forward(ctx, event))
	publisher.AssertExpectations(t)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(published, &envelope))
	assert.Equal(t, events.EventTypeBalanceChanged, envelope.EventType)
	assert.Equal(t, "splitledger", envelope.SourceService)
	assert.True(t, envelope.Timestamp.Equal(fixed))
	_, err := uuid.Parse(envelope.EventID)
	assert.NoError(t, err)

	var payload events.BalanceChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, int64(2), payload.FriendID)
	assert.True(t, payload.Delta.Equal(decimal.RequireFromString("12.5")))
}

func TestEventForwarder_ForwardError(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockMessagePublisher)
	forwarder := NewEventForwarder(publisher)

	publisher.On("Publish", ctx, mock.Anything, mock.Anything).Return(errors.New("no responders"))

	err := forwarder.Forward(ctx, events.FriendRemovedEvent{UserID: 1, FriendID: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no responders")
}

func TestEventForwarder_RegisterForwardsBusEvents(t *testing.T) {
	publisher := new(MockMessagePublisher)
	forwarder := NewEventForwarder(publisher)
	bus := events.NewBus()
	forwarder.Register(bus)

	publisher.On("Publish", mock.Anything, "splitledger.expense_deleted", mock.Anything).Return(nil).Once()
	// failures are logged, not propagated to the bus
	publisher.On("Publish", mock.Anything, "splitledger.friend_removed", mock.Anything).Return(errors.New("down")).Once()

	bus.Emit(context.Background(), events.ExpenseDeletedEvent{ExpenseID: 7})
	bus.Emit(context.Background(), events.FriendRemovedEvent{UserID: 1, FriendID: 2})
	bus.Wait()

	publisher.AssertExpectations(t)
}
