package session

import (
	"sync"
	"time"

	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/cache"
)

// Flow описывает новый сценарий, который запускается в чате.
type Flow struct {
	State    domain.SessionState
	Results  []domain.SearchResult
	CacheKey string
	Pending  []int
}

// Ticket выдаётся на каждое входящее событие, которое может запустить
// сценарий. Ответ внешнего сервиса применяется только по последнему билету.
type Ticket struct {
	ChatID int64
	seq    uint64
}

// Store хранит по одной сессии на чат. Отсутствие сессии равно StateIdle.
type Store struct {
	sessions *cache.Memory[int64, domain.Session]
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	seq     uint64
	tickets map[int64]*chatTickets
}

// chatTickets хранит последний выданный билет чата и число незавершённых
// событий. Запись живёт, пока в чате есть незавершённые события.
type chatTickets struct {
	last     uint64
	inflight int
}

// NewStore создаёт хранилище. Сессия без активности дольше ttl считается
// устаревшей и исчезает.
func NewStore(ttl time.Duration, opts ...cache.Option) *Store {
	return &Store{
		sessions: cache.NewMemory[int64, domain.Session](opts...),
		ttl:      ttl,
		now:      time.Now,
		tickets:  make(map[int64]*chatTickets),
	}
}

// Begin выдаёт новый билет для чата, делая предыдущие неактуальными.
// Каждый билет нужно завершить вызовом End.
func (s *Store) Begin(chatID int64) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ct, ok := s.tickets[chatID]
	if !ok {
		ct = &chatTickets{}
		s.tickets[chatID] = ct
	}
	ct.last = s.seq
	ct.inflight++
	return Ticket{ChatID: chatID, seq: s.seq}
}

// End завершает событие билета. Когда незавершённых событий в чате не
// осталось, запись о билетах удаляется.
func (s *Store) End(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.tickets[t.ChatID]
	if !ok {
		return
	}
	ct.inflight--
	if ct.inflight <= 0 {
		delete(s.tickets, t.ChatID)
	}
}

// Current сообщает, что после билета в чате не начиналось новых событий.
func (s *Store) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(t)
}

// Commit запускает сценарий, только если билет всё ещё последний.
func (s *Store) Commit(t Ticket, flow Flow) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(t) {
		return domain.Session{}, false
	}
	return s.StartFlow(t.ChatID, flow), true
}

func (s *Store) currentLocked(t Ticket) bool {
	ct, ok := s.tickets[t.ChatID]
	return ok && ct.last == t.seq
}

// StartFlow заменяет сессию чата новой. Сообщения прежней сессии не
// удаляются: их уборкой занимается вызывающий.
func (s *Store) StartFlow(chatID int64, flow Flow) domain.Session {
	if flow.State == domain.StateIdle {
		s.sessions.Delete(chatID)
		return domain.Session{ChatID: chatID, State: domain.StateIdle}
	}
	sess := domain.Session{
		ChatID:    chatID,
		State:     flow.State,
		CacheKey:  flow.CacheKey,
		Pending:   append([]int(nil), flow.Pending...),
		StartedAt: s.now(),
	}
	if flow.State == domain.StateAwaitingSearchSelection {
		sess.Results = append([]domain.SearchResult(nil), flow.Results...)
	}
	s.sessions.Put(chatID, sess, s.ttl)
	return sess.Clone()
}

// Get возвращает копию сессии.
func (s *Store) Get(chatID int64) (domain.Session, bool) {
	sess, ok := s.sessions.Get(chatID)
	if !ok {
		return domain.Session{ChatID: chatID, State: domain.StateIdle}, false
	}
	return sess.Clone(), true
}

// State возвращает состояние чата, StateIdle при отсутствии сессии.
func (s *Store) State(chatID int64) domain.SessionState {
	sess, _ := s.Get(chatID)
	return sess.State
}

// Clear удаляет сессию.
func (s *Store) Clear(chatID int64) {
	s.sessions.Delete(chatID)
}

// Take удаляет сессию и возвращает её содержимое для уборки сообщений.
func (s *Store) Take(chatID int64) (domain.Session, bool) {
	sess, ok := s.sessions.Take(chatID)
	if !ok {
		return domain.Session{ChatID: chatID, State: domain.StateIdle}, false
	}
	return sess, true
}

// RecordMessage добавляет сообщения к текущей сессии. Без сессии ничего не
// делает и новую не создаёт.
func (s *Store) RecordMessage(chatID int64, messageIDs ...int) bool {
	if len(messageIDs) == 0 {
		return false
	}
	return s.sessions.Update(chatID, func(sess domain.Session) domain.Session {
		pending := make([]int, 0, len(sess.Pending)+len(messageIDs))
		pending = append(pending, sess.Pending...)
		for _, id := range messageIDs {
			if !containsID(pending, id) {
				pending = append(pending, id)
			}
		}
		sess.Pending = pending
		return sess
	})
}

// Len возвращает число активных сессий.
func (s *Store) Len() int {
	return s.sessions.Len()
}

// Close останавливает таймеры устаревания.
func (s *Store) Close() {
	s.sessions.Close()
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
