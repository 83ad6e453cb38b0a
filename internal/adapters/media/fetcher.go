package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/metrics"
)

// Bot API принимает от бота файлы не больше 50 МБ.
const MaxUploadBytes = 50 << 20

// ErrTooLarge — файл не пройдёт ограничение Bot API на загрузку.
var ErrTooLarge = errors.New("media exceeds upload limit")

// HTTPFetcher открывает поток файла по прямой ссылке.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

var _ domain.MediaFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher создаёт загрузчик. timeout покрывает и чтение тела.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: MaxUploadBytes,
	}
}

// Fetch возвращает открытое тело ответа. Закрыть его должен вызывающий.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (m domain.Media, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("media", "fetch", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Media{}, fmt.Errorf("build media request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Media{}, fmt.Errorf("fetch media: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return domain.Media{}, fmt.Errorf("fetch media: unexpected status %d", resp.StatusCode)
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		resp.Body.Close()
		return domain.Media{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	body := resp.Body
	if f.maxBytes > 0 {
		body = &limitedBody{ReadCloser: resp.Body, left: f.maxBytes}
	}
	return domain.Media{
		Body:        body,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// limitedBody обрывает чтение ошибкой ErrTooLarge, как только тело
// превышает лимит. Нужен для ответов без Content-Length.
type limitedBody struct {
	io.ReadCloser
	left     int64
	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.exceeded {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > b.left+1 {
		p = p[:b.left+1]
	}
	n, err := b.ReadCloser.Read(p)
	if int64(n) <= b.left {
		b.left -= int64(n)
		return n, err
	}
	n = int(b.left)
	b.left = 0
	b.exceeded = true
	return n, ErrTooLarge
}
