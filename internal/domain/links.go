package domain

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?(?:.*&)?v=|youtu\.be/)([^&\s?#/]+)`),
	regexp.MustCompile(`youtube\.com/(?:embed|v|shorts|live)/([^&\s?#/]+)`),
}

// IsYouTubeURL проверяет, похож ли текст на ссылку YouTube.
func IsYouTubeURL(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.ContainsAny(trimmed, " \n\t") {
		return false
	}
	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
	switch host {
	case "youtu.be", "youtube.com", "m.youtube.com", "music.youtube.com":
		return true
	default:
		return false
	}
}

// ExtractVideoID достаёт идентификатор ролика из ссылки.
func ExtractVideoID(link string) (string, error) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(link); len(m) == 2 {
			return m[1], nil
		}
	}
	return "", ErrInvalidURL
}
