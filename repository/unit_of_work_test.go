package repository

import (
	"context"
	"sync"
	"testing"

	"splitledger/events"
	"splitledger/models"
	"splitledger/repository/testutil"
	"splitledger/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// UnitOfWorkTestSuite runs against one container shared by every test
type UnitOfWorkTestSuite struct {
	suite.Suite
	testDB  *testutil.TestDatabase
	bus     *events.Bus
	factory service.UnitOfWorkFactory

	mu       sync.Mutex
	received []events.Event
}

func (s *UnitOfWorkTestSuite) SetupSuite() {
	s.testDB = testutil.SetupTestDatabase(s.T())
	s.bus = events.NewBus()
	s.bus.Subscribe(events.EventTypeFriendRemoved, func(ctx context.Context, event events.Event) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.received = append(s.received, event)
	})
	s.factory = NewUnitOfWorkFactory(s.testDB.DB, s.bus)
}

func (s *UnitOfWorkTestSuite) SetupTest() {
	s.mu.Lock()
	s.received = nil
	s.mu.Unlock()
}

func (s *UnitOfWorkTestSuite) receivedEvents() []events.Event {
	s.bus.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.received...)
}

func (s *UnitOfWorkTestSuite) TestCommitPersistsAndFlushesEvents() {
	ctx := context.Background()
	uow := s.factory.Create()
	s.Require().NoError(uow.Begin(ctx))
	defer uow.Rollback()

	user := testutil.CreateTestUser("committed")
	s.Require().NoError(uow.UserRepository().Create(ctx, user))
	uow.EventBus().Publish(events.FriendRemovedEvent{UserID: user.ID, FriendID: 99})

	s.Empty(s.receivedEvents(), "events must wait for commit")
	s.Require().NoError(uow.Commit())
	s.Len(s.receivedEvents(), 1)

	found, err := NewUserRepository(s.testDB.DB).GetByEmail(ctx, user.Email)
	s.Require().NoError(err)
	s.NotNil(found)
}

func (s *UnitOfWorkTestSuite) TestRollbackDiscardsWritesAndEvents() {
	ctx := context.Background()
	users := NewUserRepository(s.testDB.DB)
	alice := testutil.CreateTestUser("rb-alice")
	bob := testutil.CreateTestUser("rb-bob")
	s.Require().NoError(users.Create(ctx, alice))
	s.Require().NoError(users.Create(ctx, bob))

	uow := s.factory.Create()
	s.Require().NoError(uow.Begin(ctx))

	_, err := uow.BalanceRepository().Apply(ctx, models.NewPairKey(nil, alice.ID, bob.ID, "USD"), decimal.NewFromInt(10))
	s.Require().NoError(err)
	uow.EventBus().Publish(events.FriendRemovedEvent{UserID: alice.ID, FriendID: bob.ID})

	s.Require().NoError(uow.Rollback())
	s.Empty(s.receivedEvents())

	rows, err := NewBalanceRepository(s.testDB.DB).GetPair(ctx, alice.ID, bob.ID, false)
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *UnitOfWorkTestSuite) TestLifecycleGuards() {
	ctx := context.Background()
	uow := s.factory.Create()

	s.Panics(func() { uow.UserRepository() })
	s.Error(uow.Commit())
	s.NoError(uow.Rollback())

	s.Require().NoError(uow.Begin(ctx))
	s.Error(uow.Begin(ctx))
	s.Require().NoError(uow.Commit())

	// rollback after commit is a no-op, which keeps `defer uow.Rollback()` safe
	s.NoError(uow.Rollback())
}

func TestUnitOfWorkSuite(t *testing.T) {
	suite.Run(t, new(UnitOfWorkTestSuite))
}
