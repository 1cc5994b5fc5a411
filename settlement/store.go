// Package settlement owns the order intent ledger: creating expected
// payments and atomically settling them exactly once.
package settlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/hivepay/hivepay/types"
)

// Store persists order intents. Settle must be safe under concurrent
// calls for the same id: the transition pending -> settled happens at
// most once, and later callers observe "already settled" rather than an
// error. A transfer reference that settled one order must never settle
// a second one.
type Store interface {
	Create(ctx context.Context, intent *types.OrderIntent) error
	Get(ctx context.Context, id string) (*types.OrderIntent, error)
	// Settle returns true when this call performed the transition and
	// false when the order was already settled with the same outcome.
	Settle(ctx context.Context, id, txRef string) (bool, error)
	// MarkExpired flips a pending order to expired. Advisory only; an
	// expired order can still settle.
	MarkExpired(ctx context.Context, id string) error
}

// MemoryStore keeps intents in process memory. Suitable for tests and
// single-instance deployments without a database.
type MemoryStore struct {
	mu       sync.Mutex
	intents  map[string]types.OrderIntent
	consumed map[string]string // txRef -> order id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		intents:  make(map[string]types.OrderIntent),
		consumed: make(map[string]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, intent *types.OrderIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.intents[intent.ID]; exists {
		return types.NewGatewayError(types.ErrStoreFailure,
			fmt.Sprintf("order %s already exists", intent.ID))
	}
	m.intents[intent.ID] = *intent
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*types.OrderIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, types.NewGatewayError(types.ErrOrderNotFound,
			fmt.Sprintf("order %s not found", id))
	}
	return &intent, nil
}

func (m *MemoryStore) Settle(_ context.Context, id, txRef string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[id]
	if !ok {
		return false, types.NewGatewayError(types.ErrOrderNotFound,
			fmt.Sprintf("order %s not found", id))
	}

	if intent.Status == types.OrderSettled {
		return false, nil
	}

	if owner, used := m.consumed[txRef]; used && owner != id {
		return false, types.NewGatewayError(types.ErrTxRefConsumed,
			fmt.Sprintf("transfer %s already settled order %s", txRef, owner))
	}

	intent.Status = types.OrderSettled
	intent.SettledTxRef = txRef
	m.intents[id] = intent
	if txRef != "" {
		m.consumed[txRef] = id
	}
	return true, nil
}

func (m *MemoryStore) MarkExpired(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[id]
	if !ok {
		return types.NewGatewayError(types.ErrOrderNotFound,
			fmt.Sprintf("order %s not found", id))
	}
	if intent.Status != types.OrderPending {
		return nil
	}
	intent.Status = types.OrderExpired
	m.intents[id] = intent
	return nil
}
