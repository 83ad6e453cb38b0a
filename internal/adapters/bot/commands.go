package bot

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := strings.ToLower(msg.Command())
	h.log.Debug().Int64("chat", chatID).Str("command", command).Msg("bot: команда")

	switch command {
	case "start":
		h.reply(ctx, chatID, welcomeText(h.opts.BotName))
	case "help":
		h.reply(ctx, chatID, helpText(humanDelay(h.opts.AutoDelete)))
	case "about", "developer":
		h.reply(ctx, chatID, aboutText(h.opts.BotName, h.opts.BotUsername))
	case "uptime":
		h.reply(ctx, chatID, "⏱ Uptime: "+formatUptime(h.now().Sub(h.opts.StartedAt)))
	case "users":
		h.handleUsers(ctx, chatID)
	case "system":
		h.reply(ctx, chatID, h.systemText())
	default:
		h.reply(ctx, chatID, textUnknownCommand)
	}
}

func (h *Handler) handleUsers(ctx context.Context, chatID int64) {
	if h.users == nil {
		h.reply(ctx, chatID, "👥 User statistics are not available.")
		return
	}
	n, err := h.users.Count(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("bot: не удалось посчитать пользователей")
		h.reply(ctx, chatID, "👥 User statistics are not available right now.")
		return
	}
	h.reply(ctx, chatID, fmt.Sprintf("👥 Total users: %d", n))
}

func (h *Handler) systemText() string {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	lines := []string{
		"🖥 System information",
		"",
		fmt.Sprintf("Go: %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
		fmt.Sprintf("CPUs: %d", runtime.NumCPU()),
		fmt.Sprintf("Goroutines: %d", runtime.NumGoroutine()),
		fmt.Sprintf("Memory: %.1f MB in use, %.1f MB from OS", float64(mem.Alloc)/(1<<20), float64(mem.Sys)/(1<<20)),
		fmt.Sprintf("Active sessions: %d", h.sessions.Len()),
		fmt.Sprintf("Pending cleanups: %d", h.cleaner.Pending()),
		"Uptime: " + formatUptime(h.now().Sub(h.opts.StartedAt)),
	}
	return strings.Join(lines, "\n")
}

// formatUptime печатает длительность как "1d 2h 3m 4s", опуская нулевые
// старшие разряды.
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)
	seconds := int((d - time.Duration(minutes)*time.Minute) / time.Second)

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if days > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if days > 0 || hours > 0 || minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))
	return strings.Join(parts, " ")
}
