package users

import (
	"context"
	"sync"

	"yt-dl-bot/internal/domain"
)

// Memory учитывает пользователей в памяти процесса.
type Memory struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

var _ domain.UserRegistry = (*Memory)(nil)

// NewMemory создаёт пустой реестр.
func NewMemory() *Memory {
	return &Memory{ids: make(map[int64]struct{})}
}

// Touch запоминает пользователя.
func (m *Memory) Touch(_ context.Context, tgUserID int64) error {
	if tgUserID == 0 {
		return nil
	}
	m.mu.Lock()
	m.ids[tgUserID] = struct{}{}
	m.mu.Unlock()
	return nil
}

// Count возвращает число разных пользователей.
func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids), nil
}
