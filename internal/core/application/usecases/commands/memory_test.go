package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory order table with a version compare-and-swap,
// shared by every unit of work created from it.
type memoryStore struct {
	mu          sync.Mutex
	orders      map[string]order.Snapshot
	quarantined map[string]string
	events      []order.DomainEvent
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		orders:      make(map[string]order.Snapshot),
		quarantined: make(map[string]string),
	}
}

func (s *memoryStore) Create() commands.OrderUoW {
	return &memoryUoW{store: s}
}

func (s *memoryStore) put(t *testing.T, o *order.Order) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID().String()] = o.Snapshot()
}

func (s *memoryStore) load(t *testing.T, id kernel.UUID) *order.Order {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := order.RestoreOrder(s.orders[id.String()])
	require.NoError(t, err)
	return o
}

func (s *memoryStore) committedEvents(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

type memoryUoW struct {
	store   *memoryStore
	pending []order.DomainEvent
}

func (u *memoryUoW) Begin(context.Context) error {
	return nil
}

func (u *memoryUoW) Rollback(context.Context) error {
	u.pending = nil
	return nil
}

func (u *memoryUoW) Commit(context.Context) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.events = append(u.store.events, u.pending...)
	u.pending = nil
	return nil
}

func (u *memoryUoW) OrderRepository() ports.OrderRepository {
	return memoryRepo{uow: u}
}

type memoryRepo struct {
	uow *memoryUoW
}

func (r memoryRepo) Add(_ context.Context, o *order.Order) error {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID().String()] = o.Snapshot()
	r.uow.pending = append(r.uow.pending, o.DomainEvents()...)
	return nil
}

func (r memoryRepo) Update(_ context.Context, o *order.Order) error {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[o.ID().String()]
	if !ok {
		return errs.ErrOrderNotFound
	}
	if stored.Version != o.Version() {
		return errs.Workflowf(errs.CodeConcurrencyConflict, "stored version %d, have %d", stored.Version, o.Version())
	}
	o.IncrementVersion()
	s.orders[o.ID().String()] = o.Snapshot()
	r.uow.pending = append(r.uow.pending, o.DomainEvents()...)
	return nil
}

func (r memoryRepo) Get(_ context.Context, id kernel.UUID) (*order.Order, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if reason, ok := s.quarantined[id.String()]; ok {
		return nil, errs.NewWorkflowErrorWithCause(errs.CodeCorruptAggregate, reason, ports.ErrQuarantined)
	}
	snapshot, ok := s.orders[id.String()]
	if !ok {
		return nil, errs.ErrOrderNotFound
	}
	return order.RestoreOrder(snapshot)
}

func (r memoryRepo) GetDueForAutoApproval(context.Context, time.Time, int) ([]kernel.UUID, error) {
	return nil, nil
}

func (r memoryRepo) GetWithStaleNegotiations(context.Context, time.Time, int) ([]kernel.UUID, error) {
	return nil, nil
}

func (r memoryRepo) Quarantine(_ context.Context, id kernel.UUID, reason string, _ time.Time) error {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarantined[id.String()] = reason
	return nil
}

func (r memoryRepo) ReleaseQuarantine(_ context.Context, id kernel.UUID) error {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quarantined, id.String())
	return nil
}
