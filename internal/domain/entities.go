package domain

import (
	"fmt"
	"time"
)

// Quality обозначает уровень разрешения видео.
type Quality string

const (
	Quality144  Quality = "144"
	Quality240  Quality = "240"
	Quality360  Quality = "360"
	Quality480  Quality = "480"
	Quality720  Quality = "720"
	Quality1080 Quality = "1080"
)

// Qualities перечисляет поддерживаемые качества по возрастанию.
var Qualities = []Quality{Quality144, Quality240, Quality360, Quality480, Quality720, Quality1080}

// ParseQuality проверяет, что метка входит в фиксированный набор.
func ParseQuality(raw string) (Quality, bool) {
	for _, q := range Qualities {
		if string(q) == raw {
			return q, true
		}
	}
	return "", false
}

// Label возвращает подпись вида "720p".
func (q Quality) Label() string {
	return string(q) + "p"
}

// SearchResult описывает один найденный ролик.
type SearchResult struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Duration  string `json:"duration"`
	Views     string `json:"views"`
	Channel   string `json:"channel"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// WatchURL строит ссылку на ролик.
func (r SearchResult) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + r.ID
}

// ResolveResult — ответ резолвера видео.
type ResolveResult struct {
	Status    bool
	Title     string
	Thumbnail string
	AudioURL  string
	Videos    map[Quality]string
}

// Record превращает ответ резолвера в запись кэша.
func (r ResolveResult) Record() VideoRecord {
	videos := make(map[Quality]string, len(r.Videos))
	for q, u := range r.Videos {
		if _, ok := ParseQuality(string(q)); !ok || u == "" {
			continue
		}
		videos[q] = u
	}
	return VideoRecord{
		Title:     r.Title,
		Thumbnail: r.Thumbnail,
		AudioURL:  r.AudioURL,
		Videos:    videos,
	}
}

// VideoRecord хранит метаданные разрешённого ролика на время выбора качества.
type VideoRecord struct {
	Title     string             `json:"title"`
	Thumbnail string             `json:"thumbnail,omitempty"`
	AudioURL  string             `json:"audio,omitempty"`
	Videos    map[Quality]string `json:"videos,omitempty"`
}

// HasAudio сообщает, доступна ли аудиодорожка.
func (r VideoRecord) HasAudio() bool {
	return r.AudioURL != ""
}

// VideoURL возвращает ссылку для качества.
func (r VideoRecord) VideoURL(q Quality) (string, bool) {
	u, ok := r.Videos[q]
	if !ok || u == "" {
		return "", false
	}
	return u, true
}

// AvailableQualities возвращает доступные качества по возрастанию.
func (r VideoRecord) AvailableQualities() []Quality {
	out := make([]Quality, 0, len(r.Videos))
	for _, q := range Qualities {
		if _, ok := r.VideoURL(q); ok {
			out = append(out, q)
		}
	}
	return out
}

// Empty сообщает, что скачивать нечего.
func (r VideoRecord) Empty() bool {
	return !r.HasAudio() && len(r.AvailableQualities()) == 0
}

// MediaKind различает аудио и видео при отправке файла.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// SessionState — состояние диалога в чате.
type SessionState int

const (
	StateIdle SessionState = iota
	StateAwaitingSearchSelection
	StateAwaitingQualityChoice
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSearchSelection:
		return "awaiting_search_selection"
	case StateAwaitingQualityChoice:
		return "awaiting_quality_choice"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session — текущий сценарий пользователя в чате.
type Session struct {
	ChatID    int64
	State     SessionState
	Results   []SearchResult
	CacheKey  string
	Pending   []int
	StartedAt time.Time
}

// Clone возвращает копию без общих срезов.
func (s Session) Clone() Session {
	out := s
	if s.Results != nil {
		out.Results = append([]SearchResult(nil), s.Results...)
	}
	if s.Pending != nil {
		out.Pending = append([]int(nil), s.Pending...)
	}
	return out
}
