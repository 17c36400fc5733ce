package locks

import (
	"context"
	"sync"

	"staybook/internal/domain/property"
)

// Local is an in-process per-property advisory lock for single-binary
// deployments. Each property gets a one-slot channel so acquisition honors
// context cancellation instead of blocking forever.
type Local struct {
	mu    sync.Mutex
	slots map[property.PropertyID]chan struct{}
}

func NewLocal() *Local {
	return &Local{slots: make(map[property.PropertyID]chan struct{})}
}

func (l *Local) Lock(ctx context.Context, id property.PropertyID) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[id]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[id] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
