package fulfillment

import (
	"context"
	"sync"
	"testing"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of fulfillment.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.FulfillmentOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.FulfillmentOrder), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter fulfillment.OrderFilter) ([]fulfillment.FulfillmentOrder, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]fulfillment.FulfillmentOrder), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *fulfillment.FulfillmentOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, order *fulfillment.FulfillmentOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockAuditRepository is a mock implementation of fulfillment.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]fulfillment.AuditEntry, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.AuditEntry), args.Error(1)
}

// MockFulfillmentRepository is a mock implementation of fulfillment.FulfillmentRepository
type MockFulfillmentRepository struct {
	mock.Mock
}

func (m *MockFulfillmentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]fulfillment.Fulfillment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.Fulfillment), args.Error(1)
}

// MockShippingMethodMappingRepository is a mock implementation of fulfillment.ShippingMethodMappingRepository
type MockShippingMethodMappingRepository struct {
	mock.Mock
}

func (m *MockShippingMethodMappingRepository) FindByLocation(ctx context.Context, locationID string) ([]fulfillment.ShippingMethodMappingEntry, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fulfillment.ShippingMethodMappingEntry), args.Error(1)
}

func (m *MockShippingMethodMappingRepository) Replace(ctx context.Context, locationID string, entries []fulfillment.ShippingMethodMappingEntry) error {
	args := m.Called(ctx, locationID, entries)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// stubLocker records lock acquisitions and can be told to refuse them
type stubLocker struct {
	mu     sync.Mutex
	err    error
	locked []uuid.UUID
}

func (l *stubLocker) Lock(_ context.Context, orderID uuid.UUID) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locked = append(l.locked, orderID)
	l.mu.Unlock()
	return func() {}, nil
}

// memorySessionStore is a minimal PickSessionStore for service tests
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*fulfillment.PickSession
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[uuid.UUID]*fulfillment.PickSession)}
}

func (s *memorySessionStore) Put(_ context.Context, session *fulfillment.PickSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *memorySessionStore) Update(_ context.Context, id uuid.UUID, fn func(*fulfillment.PickSession) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return shared.NewDomainErrorf(shared.CodeNotFound, "pick session %s not found", id)
	}
	return fn(session)
}

func (s *memorySessionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return shared.NewDomainErrorf(shared.CodeNotFound, "pick session %s not found", id)
	}
	delete(s.sessions, id)
	return nil
}

// ============================================
// Fixtures
// ============================================

const testActor = "ops@example.com"

func testAddress(t *testing.T) valueobject.Address {
	t.Helper()
	addr, err := valueobject.NewAddress("Ada Lovelace", "1 Analytical Way", "London", "GB")
	require.NoError(t, err)
	return addr
}

// newTestOrder creates an OPEN order with two lines: ABC-1 x2 and XYZ-9 x1
func newTestOrder(t *testing.T) *fulfillment.FulfillmentOrder {
	t.Helper()
	order, err := fulfillment.NewFulfillmentOrder("SO-1001", "loc-1", testAddress(t), []fulfillment.NewLineItem{
		{SKU: "ABC-1", ProductName: "Widget", Quantity: 2},
		{SKU: "XYZ-9", ProductName: "Gadget", Quantity: 1},
	})
	require.NoError(t, err)
	return order
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, shared.CodeOf(err), "unexpected error: %v", err)
}
