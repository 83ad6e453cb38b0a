package domain

import (
	"context"
	"io"
	"time"
)

// VideoResolver превращает ссылку на ролик в прямые ссылки на медиа.
type VideoResolver interface {
	Resolve(ctx context.Context, url string) (ResolveResult, error)
}

// SearchProvider ищет ролики по запросу.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Media — открытый поток файла для повторной загрузки.
type Media struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// MediaFetcher скачивает файл по прямой ссылке.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (Media, error)
}

// VideoCache хранит записи о роликах с ограниченным временем жизни.
// Промах и истёкшая запись возвращают ok=false без ошибки.
type VideoCache interface {
	Put(ctx context.Context, key string, record VideoRecord, ttl time.Duration) error
	Get(ctx context.Context, key string) (VideoRecord, bool, error)
	Delete(ctx context.Context, key string) error
}

// UserRegistry учитывает пользователей бота.
type UserRegistry interface {
	Touch(ctx context.Context, tgUserID int64) error
	Count(ctx context.Context) (int, error)
}
