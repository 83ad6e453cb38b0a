package session

import (
	"fmt"
	"strconv"
	"strings"

	"yt-dl-bot/internal/domain"
)

// SelectionError — ответ вне диапазона [1, Max] или не число.
type SelectionError struct {
	Input string
	Max   int
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selection %q out of range 1..%d", e.Input, e.Max)
}

// Select разбирает номер из ответа пользователя и возвращает выбранный
// результат поиска.
func Select(sess domain.Session, text string) (domain.SearchResult, int, error) {
	n := len(sess.Results)
	if sess.State != domain.StateAwaitingSearchSelection || n == 0 {
		return domain.SearchResult{}, 0, &SelectionError{Input: text, Max: n}
	}
	trimmed := strings.TrimSpace(text)
	choice, err := strconv.Atoi(trimmed)
	if err != nil || choice < 1 || choice > n {
		return domain.SearchResult{}, 0, &SelectionError{Input: trimmed, Max: n}
	}
	return sess.Results[choice-1], choice - 1, nil
}
