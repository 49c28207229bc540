package users

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryResolver maps platform ids to generated app ids in process
// memory. Used for tests and database-less single-process runs.
type MemoryResolver struct {
	mu  sync.Mutex
	ids map[int64]string
}

// NewMemoryResolver creates an empty resolver.
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{ids: make(map[int64]string)}
}

// Resolve returns a stable id per platform id, minting one on first use.
func (m *MemoryResolver) Resolve(ctx context.Context, telegramID int64) (string, error) {
	if telegramID == 0 {
		return "", fmt.Errorf("users: empty platform id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[telegramID]; ok {
		return id, nil
	}
	id := uuid.NewString()
	m.ids[telegramID] = id
	return id, nil
}
