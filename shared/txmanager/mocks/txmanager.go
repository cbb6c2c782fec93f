package mocks

import (
	"context"
	"slotwise/shared/txmanager"
	"sync"
)

// TxManager runs callbacks inline with a nil transaction and records the lock keys it was given.
type TxManager struct {
	mu   sync.Mutex
	Keys []string
}

func NewTxManager() *TxManager {
	return &TxManager{}
}

// Do implements txmanager.TxManager.
func (m *TxManager) Do(ctx context.Context, fn txmanager.TxFunc) error {
	return fn(ctx, nil)
}

// DoLocked implements txmanager.TxManager.
func (m *TxManager) DoLocked(ctx context.Context, key string, fn txmanager.TxFunc) error {
	m.mu.Lock()
	m.Keys = append(m.Keys, key)
	m.mu.Unlock()

	return fn(ctx, nil)
}
