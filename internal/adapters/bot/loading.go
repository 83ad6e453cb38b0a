package bot

import (
	"context"
	"sync"
	"time"
)

// loader анимирует сообщение ожидания, пока идёт внешний вызов.
type loader struct {
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// startLoading отправляет сообщение ожидания и запускает анимацию. Возвращает
// id сообщения (0, если отправить не удалось) и функцию остановки, которая
// дожидается завершения последней правки.
func (h *Handler) startLoading(ctx context.Context, chatID int64, label string) (int, func()) {
	id, err := h.tg.SendText(ctx, chatID, loadingText(loadingFrames[0], label), nil)
	if err != nil {
		h.log.Warn().Err(err).Int64("chat", chatID).Msg("bot: не удалось отправить сообщение ожидания")
		return 0, func() {}
	}
	if h.opts.LoadingInterval <= 0 {
		return id, func() {}
	}

	l := &loader{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(l.done)
		ticker := time.NewTicker(h.opts.LoadingInterval)
		defer ticker.Stop()
		frame := 1
		for {
			select {
			case <-l.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				text := loadingText(loadingFrames[frame%len(loadingFrames)], label)
				if err := h.tg.EditText(ctx, chatID, id, text, nil); err != nil {
					// сообщение удалено или правка отклонена
					return
				}
				frame++
			}
		}
	}()
	return id, func() {
		l.stopOnce.Do(func() { close(l.stop) })
		<-l.done
	}
}
