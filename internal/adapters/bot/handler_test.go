package bot

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"yt-dl-bot/internal/adapters/users"
	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/cache"
	"yt-dl-bot/internal/usecase/cleanup"
	"yt-dl-bot/internal/usecase/session"
)

type sentMessage struct {
	chatID int64
	id     int
	text   string
	photo  string
	markup *tgbotapi.InlineKeyboardMarkup
}

type editedMessage struct {
	id      int
	text    string
	caption bool
	markup  *tgbotapi.InlineKeyboardMarkup
}

type callbackAnswer struct {
	id    string
	text  string
	alert bool
}

type fakeTransport struct {
	mu       sync.Mutex
	nextID   int
	sent     []sentMessage
	edits    []editedMessage
	deleted  []int
	answers  []callbackAnswer
	media    []domain.MediaKind
	photoErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextID: 100}
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, id: f.nextID, text: text, markup: markup})
	return f.nextID, nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, chatID int64, photoURL, caption string, markup *tgbotapi.InlineKeyboardMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.photoErr != nil {
		return 0, f.photoErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, id: f.nextID, text: caption, photo: photoURL, markup: markup})
	return f.nextID, nil
}

func (f *fakeTransport) EditText(_ context.Context, _ int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{id: messageID, text: text, markup: markup})
	return nil
}

func (f *fakeTransport) EditCaption(_ context.Context, _ int64, messageID int, caption string, markup *tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{id: messageID, text: caption, caption: true, markup: markup})
	return nil
}

func (f *fakeTransport) Delete(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) SendMedia(_ context.Context, _ int64, kind domain.MediaKind, _ string, media domain.Media, _ string) (int, error) {
	defer media.Body.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.media = append(f.media, kind)
	return f.nextID, nil
}

func (f *fakeTransport) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, callbackAnswer{id: callbackID, text: text, alert: alert})
	return nil
}

func (f *fakeTransport) lastKeyboardMessage(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].markup != nil {
			return f.sent[i]
		}
	}
	t.Fatal("no message with keyboard was sent")
	return sentMessage{}
}

func (f *fakeTransport) lastSent() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeTransport) lastEdit() editedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return editedMessage{}
	}
	return f.edits[len(f.edits)-1]
}

func (f *fakeTransport) lastAnswer() callbackAnswer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		return callbackAnswer{}
	}
	return f.answers[len(f.answers)-1]
}

func (f *fakeTransport) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func (f *fakeTransport) wasDeleted(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.deleted {
		if d == id {
			return true
		}
	}
	return false
}

type fakeResolver struct {
	mu     sync.Mutex
	links  []string
	result domain.ResolveResult
	err    error
	hook   func()
}

func (r *fakeResolver) Resolve(_ context.Context, link string) (domain.ResolveResult, error) {
	r.mu.Lock()
	r.links = append(r.links, link)
	hook := r.hook
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return r.result, r.err
}

func (r *fakeResolver) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.links...)
}

type fakeSearch struct {
	query   string
	limit   int
	results []domain.SearchResult
	err     error
}

func (s *fakeSearch) Search(_ context.Context, query string, limit int) ([]domain.SearchResult, error) {
	s.query, s.limit = query, limit
	return s.results, s.err
}

type fakeMedia struct {
	err error
}

func (m fakeMedia) Fetch(context.Context, string) (domain.Media, error) {
	if m.err != nil {
		return domain.Media{}, m.err
	}
	return domain.Media{Body: io.NopCloser(strings.NewReader("payload")), Size: 7}, nil
}

type harness struct {
	h        *Handler
	tg       *fakeTransport
	sessions *session.Store
	cleaner  *cleanup.Scheduler
	videos   *cache.MemoryVideos
	users    *users.Memory
}

func newHarness(t *testing.T, resolver domain.VideoResolver, search domain.SearchProvider, mutate ...func(*Deps, *Options)) *harness {
	t.Helper()
	tg := newFakeTransport()
	sessions := session.NewStore(10 * time.Minute)
	cleaner := cleanup.NewScheduler(tg, zerolog.Nop())
	videos := cache.NewMemoryVideos()
	registry := users.NewMemory()
	t.Cleanup(func() {
		cleaner.Stop()
		sessions.Close()
		videos.Close()
	})

	deps := Deps{
		Resolver: resolver,
		Search:   search,
		Videos:   videos,
		Sessions: sessions,
		Cleanup:  cleaner,
		Users:    registry,
	}
	opts := Options{
		BotName:      "Test Bot",
		SearchLimit:  12,
		CacheTTL:     5 * time.Minute,
		AutoDelete:   time.Hour,
		CancelDelete: 20 * time.Millisecond,
		ErrorDelete:  time.Hour,
	}
	for _, m := range mutate {
		m(&deps, &opts)
	}
	return &harness{
		h:        NewHandler(tg, zerolog.Nop(), deps, opts),
		tg:       tg,
		sessions: sessions,
		cleaner:  cleaner,
		videos:   videos,
		users:    registry,
	}
}

func (hs *harness) sendText(chatID int64, messageID int, text string) {
	hs.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: messageID,
		From:      &tgbotapi.User{ID: 7},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}})
}

func (hs *harness) sendCommand(chatID int64, command string) {
	hs.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 7},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      command,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}},
	}})
}

func (hs *harness) press(chatID int64, messageID int, data string) {
	hs.h.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}})
}

func buttonTexts(markup *tgbotapi.InlineKeyboardMarkup) [][]string {
	var rows [][]string
	for _, row := range markup.InlineKeyboard {
		var texts []string
		for _, b := range row {
			texts = append(texts, b.Text)
		}
		rows = append(rows, texts)
	}
	return rows
}

func findButton(t *testing.T, markup *tgbotapi.InlineKeyboardMarkup, text string) tgbotapi.InlineKeyboardButton {
	t.Helper()
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			if b.Text == text {
				return b
			}
		}
	}
	t.Fatalf("button %q not found in %v", text, buttonTexts(markup))
	return tgbotapi.InlineKeyboardButton{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func twoQualities() domain.ResolveResult {
	return domain.ResolveResult{
		Status: true,
		Title:  "T",
		Videos: map[domain.Quality]string{domain.Quality360: "u360", domain.Quality720: "u720"},
	}
}

func lofiResults() []domain.SearchResult {
	return []domain.SearchResult{
		{ID: "a1", Title: "Lofi One", Channel: "Chill", Duration: "3:05", Views: "1.2M"},
		{ID: "b2", Title: "Lofi Two", Channel: "Beats", Duration: "1:00:01", Views: "950"},
		{ID: "c3", Title: "Lofi Three", Channel: "Radio", Duration: "2:00", Views: "10K"},
	}
}

func TestURLFlowOffersQualitiesAndReturnsLink(t *testing.T) {
	resolver := &fakeResolver{result: twoQualities()}
	hs := newHarness(t, resolver, nil)

	hs.sendText(1, 10, "https://youtu.be/abc123")

	if calls := resolver.calls(); len(calls) != 1 || calls[0] != "https://youtu.be/abc123" {
		t.Fatalf("unexpected resolver calls: %v", calls)
	}
	selection := hs.tg.lastKeyboardMessage(t)
	rows := buttonTexts(selection.markup)
	if len(rows) != 2 || len(rows[0]) != 2 || rows[0][0] != "📹 360p" || rows[0][1] != "📹 720p" || rows[1][0] != "❌ Cancel" {
		t.Fatalf("unexpected keyboard: %v", rows)
	}
	if !strings.Contains(selection.text, "T") {
		t.Fatalf("caption should contain the title: %q", selection.text)
	}

	sess, ok := hs.sessions.Get(1)
	if !ok || sess.State != domain.StateAwaitingQualityChoice || sess.CacheKey == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if len(sess.Pending) != 2 || sess.Pending[0] != 10 || sess.Pending[1] != selection.id {
		t.Fatalf("unexpected pending messages: %v", sess.Pending)
	}

	btn := findButton(t, selection.markup, "📹 720p")
	hs.press(1, selection.id, *btn.CallbackData)

	edit := hs.tg.lastEdit()
	if edit.id != selection.id || !strings.Contains(edit.text, "Video (720p)") {
		t.Fatalf("unexpected edit: %+v", edit)
	}
	download := findButton(t, edit.markup, "📥 Download Now")
	if download.URL == nil || *download.URL != "u720" {
		t.Fatalf("expected download url u720, got %+v", download)
	}
	if ans := hs.tg.lastAnswer(); ans.alert {
		t.Fatalf("unexpected alert answer: %+v", ans)
	}
	if state := hs.sessions.State(1); state != domain.StateIdle {
		t.Fatalf("session should be cleared, got %s", state)
	}
	if hs.cleaner.Pending() == 0 {
		t.Fatal("expected auto cleanup to be scheduled")
	}
}

func TestQualityTokenSurvivesSessionClear(t *testing.T) {
	hs := newHarness(t, &fakeResolver{result: twoQualities()}, nil)
	hs.sendText(1, 10, "https://youtu.be/abc123")
	selection := hs.tg.lastKeyboardMessage(t)

	hs.sessions.Clear(1)
	btn := findButton(t, selection.markup, "📹 360p")
	hs.press(1, selection.id, *btn.CallbackData)

	download := findButton(t, hs.tg.lastEdit().markup, "📥 Download Now")
	if *download.URL != "u360" {
		t.Fatalf("expected u360, got %q", *download.URL)
	}
}

func TestPhotoSelectionEditsCaption(t *testing.T) {
	result := twoQualities()
	result.Thumbnail = "https://i.ytimg.com/vi/abc123/hq.jpg"
	result.AudioURL = "uaudio"
	hs := newHarness(t, &fakeResolver{result: result}, nil)

	hs.sendText(1, 10, "https://youtu.be/abc123")
	selection := hs.tg.lastKeyboardMessage(t)
	if selection.photo != result.Thumbnail {
		t.Fatalf("expected photo message, got %+v", selection)
	}
	rows := buttonTexts(selection.markup)
	if rows[0][0] != "🎵 Audio (MP3)" {
		t.Fatalf("audio should come first: %v", rows)
	}

	btn := findButton(t, selection.markup, "🎵 Audio (MP3)")
	hs.h.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{
			MessageID: selection.id,
			Chat:      &tgbotapi.Chat{ID: 1},
			Photo:     []tgbotapi.PhotoSize{{FileID: "thumb"}},
		},
		Data: *btn.CallbackData,
	}})

	edit := hs.tg.lastEdit()
	if !edit.caption || !strings.Contains(edit.text, "Audio (MP3)") {
		t.Fatalf("expected caption edit with audio label, got %+v", edit)
	}
	if *findButton(t, edit.markup, "📥 Download Now").URL != "uaudio" {
		t.Fatal("expected audio url")
	}
}

func TestPhotoFailureFallsBackToText(t *testing.T) {
	result := twoQualities()
	result.Thumbnail = "https://broken"
	hs := newHarness(t, &fakeResolver{result: result}, nil)
	hs.tg.photoErr = errors.New("bad photo")

	hs.sendText(1, 10, "https://youtu.be/abc123")
	selection := hs.tg.lastKeyboardMessage(t)
	if selection.photo != "" {
		t.Fatalf("expected text fallback, got %+v", selection)
	}
}

func TestSearchSelectionFlow(t *testing.T) {
	resolver := &fakeResolver{result: twoQualities()}
	search := &fakeSearch{results: lofiResults()}
	hs := newHarness(t, resolver, search)

	hs.sendText(1, 10, "lofi beats")
	if search.query != "lofi beats" || search.limit != 12 {
		t.Fatalf("unexpected search call: %q %d", search.query, search.limit)
	}
	sess, ok := hs.sessions.Get(1)
	if !ok || sess.State != domain.StateAwaitingSearchSelection || len(sess.Results) != 3 {
		t.Fatalf("unexpected session after search: %+v", sess)
	}
	list := hs.tg.lastSent()
	if !strings.Contains(list.text, "1. Lofi One") || !strings.Contains(list.text, "3. Lofi Three") {
		t.Fatalf("unexpected results text: %q", list.text)
	}

	hs.sendText(1, 11, "5")
	if !strings.Contains(hs.tg.lastSent().text, "between 1 and 3") {
		t.Fatalf("expected range error, got %q", hs.tg.lastSent().text)
	}
	sess, _ = hs.sessions.Get(1)
	if sess.State != domain.StateAwaitingSearchSelection || len(sess.Results) != 3 || sess.Results[2].ID != "c3" {
		t.Fatalf("session must stay untouched: %+v", sess)
	}
	if len(resolver.calls()) != 0 {
		t.Fatal("resolver must not be called on invalid selection")
	}

	hs.sendText(1, 12, "2")
	calls := resolver.calls()
	if len(calls) != 1 || calls[0] != lofiResults()[1].WatchURL() {
		t.Fatalf("expected item 2 to be resolved, got %v", calls)
	}
	sess, _ = hs.sessions.Get(1)
	if sess.State != domain.StateAwaitingQualityChoice || len(sess.Results) != 0 {
		t.Fatalf("search session should be replaced by quality choice: %+v", sess)
	}
}

func TestURLDuringSelectionStartsNewFlow(t *testing.T) {
	resolver := &fakeResolver{result: twoQualities()}
	hs := newHarness(t, resolver, &fakeSearch{results: lofiResults()})

	hs.sendText(1, 10, "lofi beats")
	hs.sendText(1, 11, "https://www.youtube.com/watch?v=xyz")

	if calls := resolver.calls(); len(calls) != 1 || calls[0] != "https://www.youtube.com/watch?v=xyz" {
		t.Fatalf("unexpected resolver calls: %v", calls)
	}
	if state := hs.sessions.State(1); state != domain.StateAwaitingQualityChoice {
		t.Fatalf("unexpected state %s", state)
	}
}

func TestFailedURLDuringSelectionDropsOldSelection(t *testing.T) {
	resolver := &fakeResolver{err: domain.ErrResolveFailed}
	hs := newHarness(t, resolver, &fakeSearch{results: lofiResults()})

	hs.sendText(1, 10, "lofi beats")
	hs.sendText(1, 11, "https://youtu.be/broken")
	if state := hs.sessions.State(1); state != domain.StateIdle {
		t.Fatalf("failed link must abandon the selection, got %s", state)
	}
	if edit := hs.tg.lastEdit(); edit.text != resolveFailedText() {
		t.Fatalf("expected resolve error text, got %+v", edit)
	}

	hs.sendText(1, 12, "2")
	for _, link := range resolver.calls() {
		if link == lofiResults()[1].WatchURL() {
			t.Fatalf("item from the abandoned list was resolved: %v", resolver.calls())
		}
	}
}

func TestEmptySearchDuringQualityChoiceDropsOldFlow(t *testing.T) {
	search := &fakeSearch{}
	hs := newHarness(t, &fakeResolver{result: twoQualities()}, search)

	hs.sendText(1, 10, "https://youtu.be/abc123")
	selection := hs.tg.lastKeyboardMessage(t)
	hs.sendText(1, 11, "nothing here")
	if state := hs.sessions.State(1); state != domain.StateIdle {
		t.Fatalf("new search must replace the quality flow, got %s", state)
	}

	// кнопки качества живут по записи кэша, а не по сессии
	hs.press(1, selection.id, *findButton(t, selection.markup, "📹 360p").CallbackData)
	if edit := hs.tg.lastEdit(); !strings.Contains(edit.text, "Video (360p)") {
		t.Fatalf("quality button should still work, got %+v", edit)
	}
}

func TestSearchWithoutResults(t *testing.T) {
	hs := newHarness(t, &fakeResolver{}, &fakeSearch{err: errors.New("quota")})

	hs.sendText(1, 10, "nothing here")
	if edit := hs.tg.lastEdit(); edit.text != textNoResults {
		t.Fatalf("expected no results text, got %+v", edit)
	}
	if state := hs.sessions.State(1); state != domain.StateIdle {
		t.Fatalf("unexpected state %s", state)
	}
}

func TestExpiredCallbacksDoNotMutateSession(t *testing.T) {
	hs := newHarness(t, &fakeResolver{}, nil)
	hs.sessions.StartFlow(1, session.Flow{
		State:   domain.StateAwaitingSearchSelection,
		Results: lofiResults(),
		Pending: []int{1, 2},
	})
	if err := hs.videos.Put(context.Background(), "present", domain.VideoRecord{
		Title:  "T",
		Videos: map[domain.Quality]string{domain.Quality360: "u360"},
	}, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	cases := map[string]string{
		"audio missing key":    domain.AudioCallback("missing").Encode(),
		"video missing key":    domain.VideoCallback("missing", domain.Quality720).Encode(),
		"audio absent in item": domain.AudioCallback("present").Encode(),
		"quality absent":       domain.VideoCallback("present", domain.Quality1080).Encode(),
		"garbage":              "video|720|https://old.example/url",
	}
	for name, data := range cases {
		hs.press(1, 50, data)
		ans := hs.tg.lastAnswer()
		if !ans.alert || ans.text != textExpired {
			t.Fatalf("%s: expected expired alert, got %+v", name, ans)
		}
		sess, ok := hs.sessions.Get(1)
		if !ok || sess.State != domain.StateAwaitingSearchSelection || len(sess.Results) != 3 || len(sess.Pending) != 2 {
			t.Fatalf("%s: session mutated: %+v", name, sess)
		}
	}
	if hs.tg.editCount() != 0 || hs.cleaner.Pending() != 0 {
		t.Fatalf("expired callbacks must not edit or schedule anything")
	}
	if _, ok, _ := hs.videos.Get(context.Background(), "present"); !ok {
		t.Fatal("cache entry must survive expired callbacks")
	}
}

func TestCancelClearsSessionAndSchedulesCleanup(t *testing.T) {
	hs := newHarness(t, &fakeResolver{result: twoQualities()}, nil)
	hs.sendText(1, 10, "https://youtu.be/abc123")
	selection := hs.tg.lastKeyboardMessage(t)
	if state := hs.sessions.State(1); state != domain.StateAwaitingQualityChoice {
		t.Fatalf("unexpected state %s", state)
	}

	start := time.Now()
	hs.press(1, selection.id, domain.CancelCallback().Encode())

	if state := hs.sessions.State(1); state != domain.StateIdle {
		t.Fatalf("session should be cleared, got %s", state)
	}
	if edit := hs.tg.lastEdit(); edit.text != textCancelled {
		t.Fatalf("unexpected edit %+v", edit)
	}
	waitFor(t, func() bool { return hs.tg.wasDeleted(10) && hs.tg.wasDeleted(selection.id) })
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("cleanup fired before the cancel delay: %s", elapsed)
	}
}

func TestCancelWithoutSession(t *testing.T) {
	hs := newHarness(t, &fakeResolver{}, nil)
	hs.press(1, 77, domain.CancelCallback().Encode())
	waitFor(t, func() bool { return hs.tg.wasDeleted(77) })
}

func TestDoneDeletesImmediately(t *testing.T) {
	hs := newHarness(t, &fakeResolver{result: twoQualities()}, nil)
	hs.sendText(1, 10, "https://youtu.be/abc123")
	selection := hs.tg.lastKeyboardMessage(t)

	hs.press(1, selection.id, domain.DoneCallback().Encode())
	if !hs.tg.wasDeleted(10) || !hs.tg.wasDeleted(selection.id) {
		t.Fatal("done should delete flow messages right away")
	}
	if state := hs.sessions.State(1); state != domain.StateIdle {
		t.Fatalf("unexpected state %s", state)
	}
	if ans := hs.tg.lastAnswer(); !strings.Contains(ans.text, "Test Bot") {
		t.Fatalf("unexpected answer %+v", ans)
	}
}

func TestResolveFailure(t *testing.T) {
	hs := newHarness(t, &fakeResolver{err: domain.ErrResolveFailed}, nil)
	hs.sendText(1, 10, "https://youtu.be/abc123")

	if edit := hs.tg.lastEdit(); edit.text != resolveFailedText() {
		t.Fatalf("expected resolve error text, got %+v", edit)
	}
	if state := hs.sessions.State(1); state != domain.StateIdle {
		t.Fatalf("unexpected state %s", state)
	}
	if hs.cleaner.Pending() != 1 {
		t.Fatalf("expected error cleanup, got %d", hs.cleaner.Pending())
	}
}

func TestResolveStatusFalse(t *testing.T) {
	hs := newHarness(t, &fakeResolver{result: domain.ResolveResult{Status: false, Title: "x"}}, nil)
	hs.sendText(1, 10, "https://youtu.be/abc123")
	if edit := hs.tg.lastEdit(); edit.text != resolveFailedText() {
		t.Fatalf("expected resolve error text, got %+v", edit)
	}
}

func TestStaleResolveIsDiscarded(t *testing.T) {
	resolver := &fakeResolver{result: twoQualities()}
	hs := newHarness(t, resolver, nil)
	resolver.hook = func() { hs.sessions.Begin(1) }

	hs.sendText(1, 10, "https://youtu.be/abc123")

	if state := hs.sessions.State(1); state != domain.StateIdle {
		t.Fatalf("stale response must not start a flow, got %s", state)
	}
	for _, m := range hs.tg.sent {
		if m.markup != nil {
			t.Fatal("stale response must not send a keyboard")
		}
	}
}

func TestPanicIsRecovered(t *testing.T) {
	resolver := &fakeResolver{}
	resolver.hook = func() { panic("boom") }
	hs := newHarness(t, resolver, nil)

	hs.sendText(1, 10, "https://youtu.be/abc123")
	if got := hs.tg.lastSent().text; got != textInternalError {
		t.Fatalf("expected apology, got %q", got)
	}
}

type panickingVideos struct{ domain.VideoCache }

func (panickingVideos) Get(context.Context, string) (domain.VideoRecord, bool, error) {
	panic("cache is broken")
}

func TestCallbackPanicAnswersQuery(t *testing.T) {
	hs := newHarness(t, &fakeResolver{}, nil, func(d *Deps, _ *Options) {
		d.Videos = panickingVideos{VideoCache: d.Videos}
	})

	hs.press(1, 50, domain.AudioCallback("key").Encode())
	ans := hs.tg.lastAnswer()
	if ans.id != "cb" || !ans.alert || ans.text != textInternalError {
		t.Fatalf("expected error alert, got %+v", ans)
	}
}

func TestUploadDelivery(t *testing.T) {
	hs := newHarness(t, &fakeResolver{result: twoQualities()}, nil, func(d *Deps, o *Options) {
		d.Media = fakeMedia{}
		o.UploadMedia = true
	})
	hs.sendText(1, 10, "https://youtu.be/abc123")
	selection := hs.tg.lastKeyboardMessage(t)
	hs.press(1, selection.id, *findButton(t, selection.markup, "📹 720p").CallbackData)

	if len(hs.tg.media) != 1 || hs.tg.media[0] != domain.MediaVideo {
		t.Fatalf("expected uploaded video, got %v", hs.tg.media)
	}
	if edit := hs.tg.lastEdit(); !strings.Contains(edit.text, "Sent") {
		t.Fatalf("unexpected edit %+v", edit)
	}
}

func TestUploadFailureFallsBackToLink(t *testing.T) {
	hs := newHarness(t, &fakeResolver{result: twoQualities()}, nil, func(d *Deps, o *Options) {
		d.Media = fakeMedia{err: errors.New("too large")}
		o.UploadMedia = true
	})
	hs.sendText(1, 10, "https://youtu.be/abc123")
	selection := hs.tg.lastKeyboardMessage(t)
	hs.press(1, selection.id, *findButton(t, selection.markup, "📹 720p").CallbackData)

	if *findButton(t, hs.tg.lastEdit().markup, "📥 Download Now").URL != "u720" {
		t.Fatal("expected link fallback")
	}
}

func TestCommands(t *testing.T) {
	hs := newHarness(t, &fakeResolver{}, nil)

	hs.sendCommand(1, "/start")
	if !strings.Contains(hs.tg.lastSent().text, "Welcome") {
		t.Fatalf("unexpected /start reply %q", hs.tg.lastSent().text)
	}
	hs.sendCommand(1, "/users")
	if got := hs.tg.lastSent().text; got != "👥 Total users: 1" {
		t.Fatalf("unexpected /users reply %q", got)
	}
	hs.sendCommand(1, "/uptime")
	if !strings.HasPrefix(hs.tg.lastSent().text, "⏱ Uptime: ") {
		t.Fatalf("unexpected /uptime reply %q", hs.tg.lastSent().text)
	}
	hs.sendCommand(1, "/system")
	if !strings.Contains(hs.tg.lastSent().text, "Goroutines") {
		t.Fatalf("unexpected /system reply %q", hs.tg.lastSent().text)
	}
	hs.sendCommand(1, "/nope")
	if hs.tg.lastSent().text != textUnknownCommand {
		t.Fatalf("unexpected reply %q", hs.tg.lastSent().text)
	}
}

func TestSearchDisabled(t *testing.T) {
	hs := newHarness(t, &fakeResolver{}, nil)
	hs.sendText(1, 10, "some words")
	if hs.tg.lastSent().text != textSearchDisabled {
		t.Fatalf("unexpected reply %q", hs.tg.lastSent().text)
	}
}
