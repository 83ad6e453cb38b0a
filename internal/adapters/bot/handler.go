package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"yt-dl-bot/internal/adapters/telegram"
	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/metrics"
	"yt-dl-bot/internal/usecase/cleanup"
	"yt-dl-bot/internal/usecase/session"
)

// Deps — внешние сервисы обработчика. Search и Media могут быть nil.
type Deps struct {
	Resolver domain.VideoResolver
	Search   domain.SearchProvider
	Videos   domain.VideoCache
	Sessions *session.Store
	Cleanup  *cleanup.Scheduler
	Users    domain.UserRegistry
	Media    domain.MediaFetcher
}

// Options — тексты и сроки сценариев.
type Options struct {
	BotName         string
	BotUsername     string
	UploadMedia     bool
	SearchLimit     int
	CacheTTL        time.Duration
	AutoDelete      time.Duration
	CancelDelete    time.Duration
	ErrorDelete     time.Duration
	LoadingInterval time.Duration
	StartedAt       time.Time
}

// Handler обрабатывает апдейты бота.
type Handler struct {
	tg       Transport
	log      zerolog.Logger
	resolver domain.VideoResolver
	search   domain.SearchProvider
	videos   domain.VideoCache
	sessions *session.Store
	cleaner  *cleanup.Scheduler
	users    domain.UserRegistry
	media    domain.MediaFetcher
	opts     Options
	newKey   func() string
	now      func() time.Time
}

// NewHandler создаёт обработчик.
func NewHandler(tg Transport, log zerolog.Logger, deps Deps, opts Options) *Handler {
	if opts.StartedAt.IsZero() {
		opts.StartedAt = time.Now()
	}
	return &Handler{
		tg:       tg,
		log:      log,
		resolver: deps.Resolver,
		search:   deps.Search,
		videos:   deps.Videos,
		sessions: deps.Sessions,
		cleaner:  deps.Cleanup,
		users:    deps.Users,
		media:    deps.Media,
		opts:     opts,
		newKey:   uuid.NewString,
		now:      time.Now,
	}
}

// HandleUpdate обрабатывает входящий апдейт. Паника не выходит за пределы
// одного апдейта.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			metrics.UpdatePanics.Inc()
			h.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Int("update", upd.UpdateID).Msg("bot: паника при обработке апдейта")
			if upd.CallbackQuery != nil {
				h.answer(ctx, upd.CallbackQuery.ID, textInternalError, true)
				return
			}
			if chatID := updateChatID(upd); chatID != 0 {
				h.reply(ctx, chatID, textInternalError)
			}
		}
	}()

	switch {
	case upd.Message != nil:
		h.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func updateChatID(upd tgbotapi.Update) int64 {
	switch {
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil && upd.CallbackQuery.Message.Chat != nil:
		return upd.CallbackQuery.Message.Chat.ID
	}
	return 0
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	if msg.From != nil {
		h.touchUser(ctx, msg.From.ID)
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}

	chatID := msg.Chat.ID
	sess, _ := h.sessions.Get(chatID)
	route := Classify(text, sess)
	h.log.Debug().Int64("chat", chatID).Str("route", route.String()).Str("state", sess.State.String()).Msg("bot: сообщение")

	switch route {
	case RouteSelection:
		h.handleSelection(ctx, msg, sess, text)
	case RouteURL:
		h.startVideoFlow(ctx, chatID, msg.MessageID, text, "url")
	default:
		h.startSearch(ctx, chatID, msg.MessageID, text)
	}
}

func (h *Handler) touchUser(ctx context.Context, tgUserID int64) {
	if h.users == nil {
		return
	}
	if err := h.users.Touch(ctx, tgUserID); err != nil {
		h.log.Debug().Err(err).Int64("user", tgUserID).Msg("bot: пользователь не учтён")
	}
}

func (h *Handler) handleSelection(ctx context.Context, msg *tgbotapi.Message, sess domain.Session, text string) {
	chatID := msg.Chat.ID
	picked, idx, err := session.Select(sess, text)
	if err != nil {
		limit := len(sess.Results)
		var selErr *session.SelectionError
		if errors.As(err, &selErr) {
			limit = selErr.Max
		}
		h.reply(ctx, chatID, invalidSelectionText(limit))
		return
	}
	h.log.Info().Int64("chat", chatID).Int("index", idx).Str("video", picked.ID).Msg("bot: выбран результат поиска")
	h.sessions.Clear(chatID)
	h.startVideoFlow(ctx, chatID, msg.MessageID, picked.WatchURL(), "selection")
}

// startVideoFlow получает данные ролика и показывает клавиатуру качеств.
func (h *Handler) startVideoFlow(ctx context.Context, chatID int64, originalID int, link, flow string) {
	metrics.FlowsStarted.WithLabelValues(flow).Inc()
	ticket := h.sessions.Begin(chatID)
	defer h.sessions.End(ticket)

	loadingID, stop := h.startLoading(ctx, chatID, textFetching)
	res, err := h.resolver.Resolve(ctx, link)
	stop()

	if !h.sessions.Current(ticket) {
		h.log.Debug().Int64("chat", chatID).Msg("bot: ответ резолвера устарел")
		h.cleaner.DeleteNow(ctx, chatID, []int{loadingID})
		return
	}

	record := res.Record()
	if err == nil && (!res.Status || record.Empty()) {
		err = domain.ErrResolveFailed
	}
	if err != nil {
		h.log.Warn().Err(err).Int64("chat", chatID).Str("url", link).Msg("bot: не удалось получить данные ролика")
		// новая ссылка отменяет прежний сценарий и при ошибке
		h.sessions.Commit(ticket, session.Flow{State: domain.StateIdle})
		h.fail(ctx, chatID, loadingID, originalID, resolveFailedText())
		return
	}

	key := h.newKey()
	if err := h.videos.Put(ctx, key, record, h.opts.CacheTTL); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: не удалось сохранить ролик в кэш")
		h.sessions.Commit(ticket, session.Flow{State: domain.StateIdle})
		h.fail(ctx, chatID, loadingID, originalID, textInternalError)
		return
	}

	h.cleaner.DeleteNow(ctx, chatID, []int{loadingID})
	markup := QualityKeyboard(key, record)
	selectionID := h.sendPhotoOrText(ctx, chatID, record.Thumbnail, qualityCaption(record.Title, h.opts.BotName), &markup)
	if selectionID == 0 {
		_ = h.videos.Delete(ctx, key)
		return
	}

	pending := []int{originalID, selectionID}
	if _, ok := h.sessions.Commit(ticket, session.Flow{
		State:    domain.StateAwaitingQualityChoice,
		CacheKey: key,
		Pending:  pending,
	}); !ok {
		h.cleaner.DeleteNow(ctx, chatID, []int{selectionID})
		_ = h.videos.Delete(ctx, key)
		return
	}
	// кнопки живут не дольше записи кэша
	h.cleaner.Schedule(chatID, pending, h.opts.CacheTTL)
	h.log.Info().Int64("chat", chatID).Str("key", key).Int("qualities", len(record.AvailableQualities())).Bool("audio", record.HasAudio()).Msg("bot: ролик готов к выбору качества")
}

// startSearch ищет ролики и ждёт номер в ответ.
func (h *Handler) startSearch(ctx context.Context, chatID int64, originalID int, query string) {
	metrics.FlowsStarted.WithLabelValues("search").Inc()
	if h.search == nil {
		h.reply(ctx, chatID, textSearchDisabled)
		return
	}
	ticket := h.sessions.Begin(chatID)
	defer h.sessions.End(ticket)

	loadingID, stop := h.startLoading(ctx, chatID, textSearching)
	results, err := h.search.Search(ctx, query, h.opts.SearchLimit)
	stop()
	if err != nil {
		h.log.Warn().Err(err).Int64("chat", chatID).Str("query", query).Msg("bot: поиск не удался")
		results = nil
	}

	if !h.sessions.Current(ticket) {
		h.cleaner.DeleteNow(ctx, chatID, []int{loadingID})
		return
	}
	if len(results) == 0 {
		h.sessions.Commit(ticket, session.Flow{State: domain.StateIdle})
		h.fail(ctx, chatID, loadingID, originalID, textNoResults)
		return
	}

	h.cleaner.DeleteNow(ctx, chatID, []int{loadingID})
	listID, err := h.tg.SendText(ctx, chatID, searchResultsText(query, results, h.opts.BotName), nil)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: не удалось отправить результаты поиска")
		return
	}

	pending := []int{originalID, listID}
	if _, ok := h.sessions.Commit(ticket, session.Flow{
		State:   domain.StateAwaitingSearchSelection,
		Results: results,
		Pending: pending,
	}); !ok {
		h.cleaner.DeleteNow(ctx, chatID, []int{listID})
		return
	}
	h.cleaner.Schedule(chatID, pending, h.opts.AutoDelete)
	h.log.Info().Int64("chat", chatID).Int("results", len(results)).Msg("bot: результаты поиска отправлены")
}

// fail показывает ошибку вместо сообщения ожидания и убирает её позже.
func (h *Handler) fail(ctx context.Context, chatID int64, loadingID, originalID int, text string) {
	if loadingID != 0 {
		if err := h.tg.EditText(ctx, chatID, loadingID, text, nil); err == nil {
			h.cleaner.Schedule(chatID, []int{loadingID, originalID}, h.opts.ErrorDelete)
			return
		}
	}
	id, err := h.tg.SendText(ctx, chatID, text, nil)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: не удалось отправить сообщение об ошибке")
	}
	h.cleaner.Schedule(chatID, []int{loadingID, id, originalID}, h.opts.ErrorDelete)
}

func (h *Handler) sendPhotoOrText(ctx context.Context, chatID int64, photoURL, caption string, markup *tgbotapi.InlineKeyboardMarkup) int {
	if photoURL != "" {
		id, err := h.tg.SendPhoto(ctx, chatID, photoURL, caption, markup)
		if err == nil {
			return id
		}
		h.log.Debug().Err(err).Int64("chat", chatID).Msg("bot: превью не отправлено, отправляем текст")
	}
	id, err := h.tg.SendText(ctx, chatID, caption, markup)
	if err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: не удалось отправить сообщение")
		return 0
	}
	return id
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	for _, part := range telegram.SplitMessage(text, telegram.MessageLimit) {
		if _, err := h.tg.SendText(ctx, chatID, part, nil); err != nil {
			h.log.Error().Err(err).Int64("chat", chatID).Msg("bot: не удалось отправить сообщение")
			return
		}
	}
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From != nil {
		h.touchUser(ctx, cb.From.ID)
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		h.answer(ctx, cb.ID, textExpired, true)
		return
	}

	data, err := domain.ParseCallback(cb.Data)
	if err != nil {
		metrics.Callbacks.WithLabelValues("unknown", "invalid").Inc()
		h.log.Debug().Err(err).Int64("chat", cb.Message.Chat.ID).Msg("bot: кнопка не распознана")
		h.answer(ctx, cb.ID, textExpired, true)
		return
	}

	switch data.Action {
	case domain.ActionCancel:
		h.handleCancel(ctx, cb)
	case domain.ActionDone:
		h.handleDone(ctx, cb)
	case domain.ActionAudio, domain.ActionVideo:
		h.handleChoice(ctx, cb, data)
	}
}

func (h *Handler) handleCancel(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID, messageID := cb.Message.Chat.ID, cb.Message.MessageID
	h.answer(ctx, cb.ID, "", false)
	h.editMessage(ctx, cb.Message, textCancelled, nil)

	old, _ := h.sessions.Take(chatID)
	if old.CacheKey != "" {
		if err := h.videos.Delete(ctx, old.CacheKey); err != nil {
			h.log.Debug().Err(err).Str("key", old.CacheKey).Msg("bot: запись кэша не удалена")
		}
	}
	h.cleaner.Schedule(chatID, append(old.Pending, messageID), h.opts.CancelDelete)
	metrics.Callbacks.WithLabelValues(string(domain.ActionCancel), "ok").Inc()
	h.log.Info().Int64("chat", chatID).Str("state", old.State.String()).Msg("bot: сценарий отменён")
}

func (h *Handler) handleDone(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID, messageID := cb.Message.Chat.ID, cb.Message.MessageID
	h.answer(ctx, cb.ID, thanksText(h.opts.BotName), false)
	old, _ := h.sessions.Take(chatID)
	h.cleaner.DeleteNow(ctx, chatID, append(old.Pending, messageID))
	metrics.Callbacks.WithLabelValues(string(domain.ActionDone), "ok").Inc()
}

// handleChoice выдаёт ссылку на выбранный формат. Кнопка действительна, пока
// жива запись кэша, независимо от сессии чата.
func (h *Handler) handleChoice(ctx context.Context, cb *tgbotapi.CallbackQuery, data domain.Callback) {
	chatID, messageID := cb.Message.Chat.ID, cb.Message.MessageID
	action := string(data.Action)

	record, ok, err := h.videos.Get(ctx, data.Key)
	if err != nil {
		h.log.Warn().Err(err).Str("key", data.Key).Msg("bot: кэш роликов недоступен")
	}
	var url string
	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		if data.Action == domain.ActionAudio {
			url, ok = record.AudioURL, record.HasAudio()
		} else {
			url, ok = record.VideoURL(data.Quality)
		}
	} else {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	if !ok {
		metrics.Callbacks.WithLabelValues(action, "expired").Inc()
		h.log.Debug().Int64("chat", chatID).Str("key", data.Key).Str("action", action).Msg("bot: кнопка устарела")
		h.answer(ctx, cb.ID, textExpired, true)
		return
	}

	h.answer(ctx, cb.ID, "", false)
	old, _ := h.sessions.Take(chatID)
	pending := append(old.Pending, messageID)
	label := formatLabel(data)

	delivered := false
	if h.opts.UploadMedia && h.media != nil {
		delivered = h.upload(ctx, cb.Message, data, record.Title, url, label)
	}
	if !delivered {
		markup := DownloadKeyboard(url)
		if err := h.editMessage(ctx, cb.Message, readyText(label, h.opts.BotName, humanDelay(h.opts.AutoDelete)), &markup); err != nil {
			h.log.Warn().Err(err).Int64("chat", chatID).Msg("bot: не удалось показать ссылку")
		}
	}
	if err := h.videos.Delete(ctx, data.Key); err != nil {
		h.log.Debug().Err(err).Str("key", data.Key).Msg("bot: запись кэша не удалена")
	}
	h.cleaner.Schedule(chatID, pending, h.opts.AutoDelete)
	metrics.Callbacks.WithLabelValues(action, "ok").Inc()
	h.log.Info().Int64("chat", chatID).Str("action", action).Str("quality", string(data.Quality)).Bool("uploaded", delivered).Msg("bot: формат выдан")
}

// upload скачивает файл и отправляет его в чат. false означает, что нужно
// показать ссылку.
func (h *Handler) upload(ctx context.Context, msg *tgbotapi.Message, data domain.Callback, title, url, label string) bool {
	chatID := msg.Chat.ID
	_ = h.editMessage(ctx, msg, loadingText(loadingFrames[0], textUploading), nil)

	media, err := h.media.Fetch(ctx, url)
	if err != nil {
		h.log.Warn().Err(err).Int64("chat", chatID).Msg("bot: файл не скачан, отдаём ссылку")
		return false
	}
	kind, ext := domain.MediaVideo, ".mp4"
	if data.Action == domain.ActionAudio {
		kind, ext = domain.MediaAudio, ".mp3"
	}
	if _, err := h.tg.SendMedia(ctx, chatID, kind, fileName(title, ext), media, telegram.Caption(title)); err != nil {
		h.log.Warn().Err(err).Int64("chat", chatID).Msg("bot: файл не загружен, отдаём ссылку")
		return false
	}
	markup := DoneKeyboard()
	_ = h.editMessage(ctx, msg, sentText(label, h.opts.BotName), &markup)
	return true
}

// editMessage правит подпись, если сообщение с фото, иначе текст.
func (h *Handler) editMessage(ctx context.Context, msg *tgbotapi.Message, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	if len(msg.Photo) > 0 {
		return h.tg.EditCaption(ctx, msg.Chat.ID, msg.MessageID, telegram.Caption(text), markup)
	}
	return h.tg.EditText(ctx, msg.Chat.ID, msg.MessageID, text, markup)
}

func (h *Handler) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := h.tg.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		h.log.Debug().Err(err).Msg("bot: не удалось ответить на callback")
	}
}

func fileName(title, ext string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	clean = telegram.Truncate(clean, 80)
	if clean == "" {
		clean = "video"
	}
	return clean + ext
}

// humanDelay форматирует задержку для текста: "60 seconds", "5 minutes".
func humanDelay(d time.Duration) string {
	switch {
	case d <= 0:
		return "a moment"
	case d < 2*time.Minute || d%time.Minute != 0:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	default:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
}
