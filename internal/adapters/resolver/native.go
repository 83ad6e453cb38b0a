package resolver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/metrics"
)

// Native разбирает ролик напрямую через kkdai/youtube без внешнего API.
type Native struct {
	client  *youtube.Client
	timeout time.Duration
}

var _ domain.VideoResolver = (*Native)(nil)

// NewNative создаёт резолвер.
func NewNative(timeout time.Duration) *Native {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Native{
		client:  &youtube.Client{HTTPClient: &http.Client{Timeout: timeout}},
		timeout: timeout,
	}
}

// Resolve получает метаданные и прямые ссылки на потоки.
func (n *Native) Resolve(ctx context.Context, link string) (res domain.ResolveResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("resolver_native", "resolve", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	video, err := n.client.GetVideoContext(ctx, link)
	if err != nil {
		return domain.ResolveResult{}, fmt.Errorf("fetch youtube video: %w", err)
	}

	audio, videos := pickFormats(video.Formats)
	res = domain.ResolveResult{
		Title:     video.Title,
		Thumbnail: bestThumbnail(video.Thumbnails),
		Videos:    make(map[domain.Quality]string, len(videos)),
	}
	if audio != nil {
		if u, err := n.client.GetStreamURLContext(ctx, video, audio); err == nil {
			res.AudioURL = u
		}
	}
	for q, f := range videos {
		u, err := n.client.GetStreamURLContext(ctx, video, f)
		if err != nil {
			continue
		}
		res.Videos[q] = u
	}
	res.Status = res.AudioURL != "" || len(res.Videos) > 0
	return res, nil
}

// pickFormats выбирает лучший аудиопоток и по одному видеопотоку на качество.
// Потоки со звуком предпочтительнее, среди равных — с большим битрейтом.
func pickFormats(formats youtube.FormatList) (*youtube.Format, map[domain.Quality]*youtube.Format) {
	var audio *youtube.Format
	videos := make(map[domain.Quality]*youtube.Format)
	for i := range formats {
		f := &formats[i]
		switch {
		case strings.HasPrefix(f.MimeType, "audio/"):
			if audio == nil || better(f, audio) {
				audio = f
			}
		case strings.HasPrefix(f.MimeType, "video/"):
			q, ok := qualityOf(f.QualityLabel)
			if !ok {
				continue
			}
			if cur, exists := videos[q]; !exists || better(f, cur) {
				videos[q] = f
			}
		}
	}
	return audio, videos
}

func better(candidate, current *youtube.Format) bool {
	if (candidate.AudioChannels > 0) != (current.AudioChannels > 0) {
		return candidate.AudioChannels > 0
	}
	mp4c := strings.Contains(candidate.MimeType, "mp4")
	mp4o := strings.Contains(current.MimeType, "mp4")
	if mp4c != mp4o {
		return mp4c
	}
	return candidate.Bitrate > current.Bitrate
}

// qualityOf превращает "720p60" или "1080p" в метку качества.
func qualityOf(label string) (domain.Quality, bool) {
	idx := strings.IndexByte(label, 'p')
	if idx <= 0 {
		return "", false
	}
	return domain.ParseQuality(label[:idx])
}

func bestThumbnail(thumbs youtube.Thumbnails) string {
	var (
		best string
		area uint
	)
	for _, t := range thumbs {
		if a := t.Width * t.Height; best == "" || a > area {
			best, area = t.URL, a
		}
	}
	return best
}
