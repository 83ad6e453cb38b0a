package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"yt-dl-bot/internal/domain"
)

const qualityRowSize = 3

// QualityKeyboard строит клавиатуру выбора: аудио, видео по возрастанию
// качества рядами по три, отмена.
func QualityKeyboard(key string, record domain.VideoRecord) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if record.HasAudio() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎵 Audio (MP3)", domain.AudioCallback(key).Encode()),
		))
	}
	var row []tgbotapi.InlineKeyboardButton
	for _, q := range record.AvailableQualities() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("📹 "+q.Label(), domain.VideoCallback(key, q).Encode()))
		if len(row) == qualityRowSize {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", domain.CancelCallback().Encode()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// DownloadKeyboard — кнопка со ссылкой на файл и кнопка завершения.
func DownloadKeyboard(url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📥 Download Now", url)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Done", domain.DoneCallback().Encode())),
	)
}

// DoneKeyboard — только кнопка завершения.
func DoneKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Done", domain.DoneCallback().Encode())),
	)
}
