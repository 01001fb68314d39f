package index

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/askdesk/backend/internal/domain"
	"github.com/askdesk/backend/internal/vector"
	"github.com/askdesk/backend/pkg/logger"
)

// Manager owns the active index generation. Readers see either the fully
// old or the fully new store, never a partially built one: a rebuild works
// on a fresh store and only Swap makes it visible.
type Manager struct {
	mu     sync.RWMutex
	active vector.Store
}

func NewManager() *Manager {
	return &Manager{}
}

// Active returns the current index generation, or domain.ErrIndexNotReady
// before the first successful build.
func (m *Manager) Active() (vector.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil {
		return nil, domain.ErrIndexNotReady
	}
	return m.active, nil
}

// Swap atomically replaces the active store with next and disposes of the
// previous generation. In-flight queries that already hold the old store
// keep using it; dropping a memory store after Swap only fails queries
// that raced past the swap, and a Milvus collection drop is handled
// server-side.
func (m *Manager) Swap(ctx context.Context, next vector.Store) {
	m.mu.Lock()
	old := m.active
	m.active = next
	m.mu.Unlock()

	logger.Info("Index generation swapped", zap.String("collection", next.Name()))

	if old != nil {
		if err := old.Drop(ctx); err != nil {
			logger.Warn("Failed to drop previous index generation",
				zap.String("collection", old.Name()),
				zap.Error(err),
			)
		}
		if err := old.Close(); err != nil {
			logger.Warn("Failed to close previous index generation", zap.Error(err))
		}
	}
}

// Close releases the active store without dropping its data.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil
	}
	err := m.active.Close()
	m.active = nil
	return err
}
