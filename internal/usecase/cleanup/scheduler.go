package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"yt-dl-bot/internal/infra/metrics"
)

const deleteTimeout = 10 * time.Second

// Deleter удаляет одно сообщение чата.
type Deleter interface {
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// Scheduler откладывает удаление сообщений сценария. Повторные и
// пересекающиеся расписания допустимы: удаление уже удалённого сообщения
// только логируется.
type Scheduler struct {
	deleter Deleter
	log     zerolog.Logger

	mu      sync.Mutex
	seq     uint64
	timers  map[uint64]*time.Timer
	stopped bool
}

// NewScheduler создаёт планировщик.
func NewScheduler(deleter Deleter, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		deleter: deleter,
		log:     log,
		timers:  make(map[uint64]*time.Timer),
	}
}

// Schedule взводит одноразовый таймер на удаление сообщений через delay.
func (s *Scheduler) Schedule(chatID int64, messageIDs []int, delay time.Duration) {
	ids := uniqueIDs(messageIDs)
	if len(ids) == 0 {
		return
	}
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.seq++
	id := s.seq
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		s.DeleteNow(context.Background(), chatID, ids)
	})
	metrics.DeletionsScheduled.Inc()
	s.log.Debug().Int64("chat", chatID).Ints("messages", ids).Dur("delay", delay).Msg("cleanup: удаление запланировано")
}

// DeleteNow удаляет сообщения сразу. Ошибки по отдельным сообщениям
// проглатываются. Возвращает число удалённых.
func (s *Scheduler) DeleteNow(ctx context.Context, chatID int64, messageIDs []int) int {
	deleted := 0
	for _, id := range uniqueIDs(messageIDs) {
		callCtx, cancel := context.WithTimeout(ctx, deleteTimeout)
		err := s.deleter.Delete(callCtx, chatID, id)
		cancel()
		if err != nil {
			metrics.Deletions.WithLabelValues("failed").Inc()
			s.log.Debug().Err(err).Int64("chat", chatID).Int("message", id).Msg("cleanup: сообщение не удалено")
			continue
		}
		metrics.Deletions.WithLabelValues("deleted").Inc()
		deleted++
	}
	return deleted
}

// Pending возвращает число взведённых таймеров.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop отменяет все ожидающие удаления и запрещает новые.
func (s *Scheduler) Stop() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	cancelled := 0
	for id, t := range s.timers {
		if t.Stop() {
			cancelled++
		}
		delete(s.timers, id)
	}
	return cancelled
}

func uniqueIDs(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
