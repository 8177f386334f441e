// Package store — хранилища снапшотов сессий: память для тестов и
// отладки, SQLite для реальных прогонов.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/tetraminz/sales_trainer/internal/engine"
)

var ErrNotFound = errors.New("session not found")

// InMemory — потокобезопасное хранилище в памяти. Перезапуск процесса
// теряет данные; для прогонов с отчетами нужен SQLite.
type InMemory struct {
	mu   sync.RWMutex
	data map[string]*engine.SessionState
}

func NewInMemory() *InMemory {
	return &InMemory{data: make(map[string]*engine.SessionState)}
}

func (s *InMemory) Get(_ context.Context, id string) (*engine.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return state, nil
}

func (s *InMemory) Save(_ context.Context, state *engine.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[state.SessionID] = state
	return nil
}
