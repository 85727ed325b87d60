package session

import (
	"context"
	"sync"

	"github.com/fjod/go_bullion/internal/domain"
)

// MemoryStore keeps serialized carts in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte // cart key -> JSON lines
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) ([]domain.CartLine, error) {
	m.mu.RLock()
	data, ok := m.blobs[cartKey(sessionID)]
	m.mu.RUnlock()
	if !ok {
		return []domain.CartLine{}, nil
	}
	return decodeLines(data)
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, lines []domain.CartLine) error {
	data, err := encodeLines(lines)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[cartKey(sessionID)] = data
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, cartKey(sessionID))
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
