package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/metrics"
)

// Transport — исходящие вызовы Bot API, которыми пользуется обработчик.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error)
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, markup *tgbotapi.InlineKeyboardMarkup) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string, markup *tgbotapi.InlineKeyboardMarkup) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	SendMedia(ctx context.Context, chatID int64, kind domain.MediaKind, name string, media domain.Media, caption string) (int, error)
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// API реализует Transport поверх tgbotapi. Все вызовы проходят через общий
// ограничитель частоты, чтобы не упираться в flood-лимиты Telegram.
type API struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

var _ Transport = (*API)(nil)

// NewAPI создаёт транспорт. rps — допустимое число вызовов в секунду.
func NewAPI(bot *tgbotapi.BotAPI, rps float64) *API {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &API{bot: bot, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Username возвращает имя бота.
func (a *API) Username() string {
	return a.bot.Self.UserName
}

func (a *API) send(ctx context.Context, operation string, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	start := time.Now()
	msg, err := a.bot.Send(c)
	metrics.ObserveNetworkRequest("telegram_bot", operation, start, err)
	if err != nil {
		metrics.BotSendErrors.Inc()
		return tgbotapi.Message{}, fmt.Errorf("telegram %s: %w", operation, err)
	}
	return msg, nil
}

func (a *API) request(ctx context.Context, operation string, c tgbotapi.Chattable) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	_, err := a.bot.Request(c)
	metrics.ObserveNetworkRequest("telegram_bot", operation, start, err)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", operation, err)
	}
	return nil
}

// SendText отправляет текст и возвращает id сообщения.
func (a *API) SendText(ctx context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	sent, err := a.send(ctx, "send_message", msg)
	return sent.MessageID, err
}

// SendPhoto отправляет картинку по URL с подписью.
func (a *API) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	if markup != nil {
		photo.ReplyMarkup = *markup
	}
	sent, err := a.send(ctx, "send_photo", photo)
	return sent.MessageID, err
}

// EditText заменяет текст сообщения и клавиатуру.
func (a *API) EditText(ctx context.Context, chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = markup
	edit.DisableWebPagePreview = true
	return a.request(ctx, "edit_message_text", edit)
}

// EditCaption заменяет подпись к медиа и клавиатуру.
func (a *API) EditCaption(ctx context.Context, chatID int64, messageID int, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageCaption(chatID, messageID, caption)
	edit.ReplyMarkup = markup
	return a.request(ctx, "edit_message_caption", edit)
}

// Delete удаляет сообщение.
func (a *API) Delete(ctx context.Context, chatID int64, messageID int) error {
	return a.request(ctx, "delete_message", tgbotapi.NewDeleteMessage(chatID, messageID))
}

// SendMedia загружает файл из потока как аудио или видео.
func (a *API) SendMedia(ctx context.Context, chatID int64, kind domain.MediaKind, name string, media domain.Media, caption string) (int, error) {
	if media.Body == nil {
		return 0, errors.New("telegram send_media: empty body")
	}
	defer media.Body.Close()

	file := tgbotapi.FileReader{Name: name, Reader: media.Body}
	var c tgbotapi.Chattable
	switch kind {
	case domain.MediaAudio:
		audio := tgbotapi.NewAudio(chatID, file)
		audio.Caption = caption
		c = audio
	default:
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = caption
		video.SupportsStreaming = true
		c = video
	}
	sent, err := a.send(ctx, "send_"+string(kind), c)
	return sent.MessageID, err
}

// AnswerCallback отвечает на нажатие кнопки. alert показывает модальное окно.
func (a *API) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	return a.request(ctx, "answer_callback", cb)
}

// SetWebhook регистрирует вебхук с секретом. tgbotapi v5.5 не умеет
// передавать secret_token, поэтому запрос собирается вручную.
func (a *API) SetWebhook(ctx context.Context, url, secret string) error {
	params := tgbotapi.Params{"url": url, "drop_pending_updates": "true"}
	params.AddNonEmpty("secret_token", secret)
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	_, err := a.bot.MakeRequest("setWebhook", params)
	metrics.ObserveNetworkRequest("telegram_bot", "set_webhook", start, err)
	if err != nil {
		return fmt.Errorf("telegram setWebhook: %w", err)
	}
	return nil
}

// DeleteWebhook переводит бота в режим long polling.
func (a *API) DeleteWebhook(ctx context.Context) error {
	return a.request(ctx, "delete_webhook", tgbotapi.DeleteWebhookConfig{})
}
