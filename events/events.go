package events

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChanged          EventType = "balance_changed"
	EventTypeExpenseAdded            EventType = "expense_added"
	EventTypeExpenseUpdated          EventType = "expense_updated"
	EventTypeExpenseDeleted          EventType = "expense_deleted"
	EventTypeFriendRemoved           EventType = "friend_removed"
	EventTypeGroupMemberAdded        EventType = "group_member_added"
	EventTypeSplitwiseImportFinished EventType = "splitwise_import_finished"
)

// AllEventTypes lists every event type the ledger emits
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeBalanceChanged,
		EventTypeExpenseAdded,
		EventTypeExpenseUpdated,
		EventTypeExpenseDeleted,
		EventTypeFriendRemoved,
		EventTypeGroupMemberAdded,
		EventTypeSplitwiseImportFinished,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangedEvent is emitted for every pair delta applied to the ledger.
// Delta is from UserID's side: positive means FriendID now owes UserID more.
type BalanceChangedEvent struct {
	UserID    int64           `json:"user_id"`
	FriendID  int64           `json:"friend_id"`
	GroupID   *int64          `json:"group_id,omitempty"`
	Currency  string          `json:"currency"`
	Delta     decimal.Decimal `json:"delta"`
	ExpenseID *int64          `json:"expense_id,omitempty"`
}

func (e BalanceChangedEvent) Type() EventType {
	return EventTypeBalanceChanged
}

// ExpenseAddedEvent is emitted when an expense or settlement is recorded
type ExpenseAddedEvent struct {
	ExpenseID      int64           `json:"expense_id"`
	GroupID        *int64          `json:"group_id,omitempty"`
	AddedBy        int64           `json:"added_by"`
	PaidBy         int64           `json:"paid_by"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	ParticipantIDs []int64         `json:"participant_ids"`
	Settlement     bool            `json:"settlement"`
}

func (e ExpenseAddedEvent) Type() EventType {
	return EventTypeExpenseAdded
}

// ExpenseUpdatedEvent is emitted when an expense is edited
type ExpenseUpdatedEvent struct {
	ExpenseID      int64   `json:"expense_id"`
	UpdatedBy      int64   `json:"updated_by"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

func (e ExpenseUpdatedEvent) Type() EventType {
	return EventTypeExpenseUpdated
}

// ExpenseDeletedEvent is emitted when an expense is soft-deleted
type ExpenseDeletedEvent struct {
	ExpenseID      int64   `json:"expense_id"`
	DeletedBy      int64   `json:"deleted_by"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

func (e ExpenseDeletedEvent) Type() EventType {
	return EventTypeExpenseDeleted
}

// FriendRemovedEvent is emitted when a friend relationship is removed
type FriendRemovedEvent struct {
	UserID   int64 `json:"user_id"`
	FriendID int64 `json:"friend_id"`
}

func (e FriendRemovedEvent) Type() EventType {
	return EventTypeFriendRemoved
}

// GroupMemberAddedEvent is emitted when a user joins a group
type GroupMemberAddedEvent struct {
	GroupID int64 `json:"group_id"`
	UserID  int64 `json:"user_id"`
	AddedBy int64 `json:"added_by"`
}

func (e GroupMemberAddedEvent) Type() EventType {
	return EventTypeGroupMemberAdded
}

// SplitwiseImportFinishedEvent summarizes a completed import run
type SplitwiseImportFinishedEvent struct {
	ImportID        string `json:"import_id"`
	UserID          int64  `json:"user_id"`
	UsersCreated    int    `json:"users_created"`
	GroupsCreated   int    `json:"groups_created"`
	BalancesApplied int    `json:"balances_applied"`
	Failures        int    `json:"failures"`
}

func (e SplitwiseImportFinishedEvent) Type() EventType {
	return EventTypeSplitwiseImportFinished
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Handlers run asynchronously so a slow consumer never blocks a request
	for i, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

// TransactionalBus holds events raised inside a unit of work until the transaction commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional bus flushing to real
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes the event until Flush
func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Pending returns the events waiting for commit
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush emits pending events; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	// Handlers outlive the request, so they get a context detached from its cancellation
	eventCtx := context.WithoutCancel(ctx)

	if b.real != nil {
		for _, ev := range b.pending {
			b.real.Emit(eventCtx, ev)
		}
	}
	b.pending = nil
}

// Discard drops pending events; called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
