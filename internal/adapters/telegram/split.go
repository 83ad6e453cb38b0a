package telegram

import "strings"

const (
	// MessageLimit — максимальная длина текста сообщения в символах.
	MessageLimit = 4096
	// CaptionLimit — максимальная длина подписи к медиа.
	CaptionLimit = 1024
)

// SplitMessage режет текст на части не длиннее limit символов, стараясь
// резать по переводам строк. limit <= 0 означает MessageLimit.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= limit {
		return []string{trimmed}
	}

	var parts []string
	for start := 0; start < len(runes); {
		end := start + limit
		if end >= len(runes) {
			if chunk := strings.Trim(string(runes[start:]), "\n"); chunk != "" {
				parts = append(parts, chunk)
			}
			break
		}

		split := -1
		for i := end; i > start; i-- {
			if runes[i-1] == '\n' {
				split = i
				break
			}
		}
		if split == -1 {
			split = end
		}

		if chunk := strings.Trim(string(runes[start:split]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}

		start = split
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}

	if len(parts) == 0 {
		return []string{trimmed}
	}
	return parts
}

// Truncate обрезает текст до limit символов, заканчивая многоточием.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	if limit == 1 {
		return "…"
	}
	return strings.TrimRight(string(runes[:limit-1]), " \n") + "…"
}

// Caption подгоняет подпись под ограничение Bot API.
func Caption(text string) string {
	return Truncate(text, CaptionLimit)
}
