package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler обрабатывает апдейт Telegram.
type UpdateHandler func(ctx context.Context, update tgbotapi.Update)

// MountWebhook регистрирует POST-обработчик вебхука. Если secret задан,
// запросы без совпадающего заголовка отклоняются.
func (s *Server) MountWebhook(path, secret string, handle UpdateHandler) {
	s.Router.With(SecretTokenMiddleware(secret)).Post(path, WebhookHandler(handle))
}

// WebhookHandler декодирует апдейт и передаёт его обработчику.
func WebhookHandler(handle UpdateHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		handle(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	}
}

// SecretTokenMiddleware сверяет секрет вебхука из заголовка Telegram.
func SecretTokenMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		expected := []byte(secret)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(secretTokenHeader))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				http.Error(w, "секрет вебхука недействителен", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
