package bot

import "yt-dl-bot/internal/domain"

// Route — куда направить текстовое сообщение.
type Route int

const (
	RouteSearch Route = iota
	RouteURL
	RouteSelection
)

func (r Route) String() string {
	switch r {
	case RouteURL:
		return "url"
	case RouteSelection:
		return "selection"
	default:
		return "search"
	}
}

// Classify выбирает маршрут для текста. Ссылка на ролик всегда начинает новый
// сценарий, даже если чат ждёт номер из результатов поиска.
func Classify(text string, sess domain.Session) Route {
	if domain.IsYouTubeURL(text) {
		return RouteURL
	}
	if sess.State == domain.StateAwaitingSearchSelection {
		return RouteSelection
	}
	return RouteSearch
}
