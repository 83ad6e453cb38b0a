package cache

import (
	"context"
	"time"

	"yt-dl-bot/internal/domain"
)

// MemoryVideos реализует domain.VideoCache поверх Memory.
type MemoryVideos struct {
	items *Memory[string, domain.VideoRecord]
}

var _ domain.VideoCache = (*MemoryVideos)(nil)

// NewMemoryVideos создаёт кэш записей о роликах в памяти процесса.
func NewMemoryVideos(opts ...Option) *MemoryVideos {
	return &MemoryVideos{items: NewMemory[string, domain.VideoRecord](opts...)}
}

// Put сохраняет запись.
func (m *MemoryVideos) Put(_ context.Context, key string, record domain.VideoRecord, ttl time.Duration) error {
	m.items.Put(key, record, ttl)
	return nil
}

// Get возвращает запись, если она ещё жива.
func (m *MemoryVideos) Get(_ context.Context, key string) (domain.VideoRecord, bool, error) {
	rec, ok := m.items.Get(key)
	return rec, ok, nil
}

// Delete удаляет запись.
func (m *MemoryVideos) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// Len возвращает число живых записей.
func (m *MemoryVideos) Len() int {
	return m.items.Len()
}

// Close останавливает таймеры.
func (m *MemoryVideos) Close() {
	m.items.Close()
}
