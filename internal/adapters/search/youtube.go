package search

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/metrics"
)

// Data API не отдаёт больше 50 элементов за запрос.
const maxResults = 50

// YouTube ищет ролики через YouTube Data API v3.
type YouTube struct {
	service *youtube.Service
	timeout time.Duration
}

var _ domain.SearchProvider = (*YouTube)(nil)

// NewYouTube создаёт клиент. Дополнительные опции позволяют подменить
// endpoint и HTTP-клиент.
func NewYouTube(ctx context.Context, apiKey string, timeout time.Duration, opts ...option.ClientOption) (*YouTube, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("youtube api key: %w", domain.ErrProviderUnavailable)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YouTube{service: service, timeout: timeout}, nil
}

// Search возвращает до limit роликов с длительностью и просмотрами.
func (y *YouTube) Search(ctx context.Context, query string, limit int) (results []domain.SearchResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("youtube_api", "search", start, err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > maxResults {
		limit = maxResults
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	resp, err := y.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search.list: %w", err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		res := domain.SearchResult{ID: item.Id.VideoId, Duration: "N/A", Views: "N/A"}
		if item.Snippet != nil {
			res.Title = item.Snippet.Title
			res.Channel = item.Snippet.ChannelTitle
			res.Thumbnail = snippetThumbnail(item.Snippet.Thumbnails)
		}
		results = append(results, res)
		ids = append(ids, res.ID)
	}
	if len(ids) == 0 {
		return results, nil
	}

	details, err := y.service.Videos.List([]string{"contentDetails", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		// без деталей список всё равно полезен
		return results, nil
	}
	byID := make(map[string]*youtube.Video, len(details.Items))
	for _, v := range details.Items {
		byID[v.Id] = v
	}
	for i := range results {
		v, ok := byID[results[i].ID]
		if !ok {
			continue
		}
		if v.ContentDetails != nil {
			results[i].Duration = FormatDuration(v.ContentDetails.Duration)
		}
		if v.Statistics != nil {
			results[i].Views = FormatViews(v.Statistics.ViewCount)
		}
	}
	return results, nil
}

func snippetThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// FormatDuration переводит ISO 8601 ("PT1H2M3S") в "1:02:03" или "2:03".
func FormatDuration(iso string) string {
	m := isoDuration.FindStringSubmatch(iso)
	if m == nil || iso == "P" || iso == "PT" {
		return "N/A"
	}
	num := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	hours := num(m[1])*24 + num(m[2])
	mins, secs := num(m[3]), num(m[4])
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// FormatViews сокращает число просмотров: 1.2M, 3.4K.
func FormatViews(views uint64) string {
	switch {
	case views >= 1_000_000:
		return strconv.FormatFloat(float64(views)/1_000_000, 'f', 1, 64) + "M"
	case views >= 1_000:
		return strconv.FormatFloat(float64(views)/1_000, 'f', 1, 64) + "K"
	default:
		return strconv.FormatUint(views, 10)
	}
}
