package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/metrics"
)

const maxResponseBytes = 1 << 20

// WorkerAPI обращается к HTTP API, которое по ссылке отдаёт прямые ссылки на
// аудио и видео разных качеств.
type WorkerAPI struct {
	client  *http.Client
	baseURL string
}

var _ domain.VideoResolver = (*WorkerAPI)(nil)

// NewWorkerAPI создаёт резолвер. timeout ограничивает каждый запрос.
func NewWorkerAPI(baseURL string, timeout time.Duration) *WorkerAPI {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WorkerAPI{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSpace(baseURL),
	}
}

type workerResponse struct {
	Status    bool              `json:"status"`
	Title     string            `json:"title"`
	Thumbnail string            `json:"thumbnail"`
	Audio     string            `json:"audio"`
	Videos    map[string]string `json:"videos"`
}

// Resolve запрашивает данные о ролике.
func (w *WorkerAPI) Resolve(ctx context.Context, link string) (res domain.ResolveResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("resolver_api", "resolve", start, err) }()

	endpoint, err := url.Parse(w.baseURL)
	if err != nil {
		return domain.ResolveResult{}, fmt.Errorf("parse resolver url: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", link)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return domain.ResolveResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return domain.ResolveResult{}, fmt.Errorf("resolver request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return domain.ResolveResult{}, fmt.Errorf("%w: status %d", domain.ErrResolveFailed, resp.StatusCode)
	}

	var payload workerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return domain.ResolveResult{}, fmt.Errorf("decode resolver response: %w", err)
	}

	videos := make(map[domain.Quality]string, len(payload.Videos))
	for label, u := range payload.Videos {
		q, ok := domain.ParseQuality(strings.TrimSuffix(label, "p"))
		if !ok || u == "" {
			continue
		}
		videos[q] = u
	}
	return domain.ResolveResult{
		Status:    payload.Status,
		Title:     payload.Title,
		Thumbnail: payload.Thumbnail,
		AudioURL:  payload.Audio,
		Videos:    videos,
	}, nil
}
