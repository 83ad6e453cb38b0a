package domain

import (
	"fmt"
	"strings"
)

// CallbackAction — дискриминатор нажатой кнопки.
type CallbackAction string

const (
	ActionAudio  CallbackAction = "audio"
	ActionVideo  CallbackAction = "video"
	ActionCancel CallbackAction = "cancel"
	ActionDone   CallbackAction = "done"
)

// Telegram ограничивает callback_data 64 байтами.
const callbackDataLimit = 64

const callbackSep = "|"

var actionTags = map[CallbackAction]string{
	ActionAudio:  "a",
	ActionVideo:  "v",
	ActionCancel: "x",
	ActionDone:   "d",
}

// Callback — разобранные данные кнопки. Quality задаётся только для видео,
// Key — для аудио и видео.
type Callback struct {
	Action  CallbackAction
	Quality Quality
	Key     string
}

// AudioCallback создаёт кнопку аудио.
func AudioCallback(key string) Callback {
	return Callback{Action: ActionAudio, Key: key}
}

// VideoCallback создаёт кнопку видео выбранного качества.
func VideoCallback(key string, q Quality) Callback {
	return Callback{Action: ActionVideo, Quality: q, Key: key}
}

// CancelCallback создаёт кнопку отмены.
func CancelCallback() Callback { return Callback{Action: ActionCancel} }

// DoneCallback создаёт кнопку завершения.
func DoneCallback() Callback { return Callback{Action: ActionDone} }

// Encode сериализует кнопку в компактную строку.
func (c Callback) Encode() string {
	tag := actionTags[c.Action]
	switch c.Action {
	case ActionAudio:
		return tag + callbackSep + c.Key
	case ActionVideo:
		return tag + callbackSep + string(c.Quality) + callbackSep + c.Key
	default:
		return tag
	}
}

// ParseCallback разбирает callback_data. Неизвестные теги, качества и пустые
// ключи отклоняются.
func ParseCallback(data string) (Callback, error) {
	if data == "" || len(data) > callbackDataLimit {
		return Callback{}, fmt.Errorf("%w: length %d", ErrInvalidCallback, len(data))
	}
	parts := strings.Split(data, callbackSep)
	var action CallbackAction
	for a, tag := range actionTags {
		if tag == parts[0] {
			action = a
			break
		}
	}
	switch action {
	case ActionCancel, ActionDone:
		if len(parts) != 1 {
			return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
		}
		return Callback{Action: action}, nil
	case ActionAudio:
		if len(parts) != 2 || parts[1] == "" {
			return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
		}
		return AudioCallback(parts[1]), nil
	case ActionVideo:
		if len(parts) != 3 || parts[2] == "" {
			return Callback{}, fmt.Errorf("%w: %q", ErrInvalidCallback, data)
		}
		q, ok := ParseQuality(parts[1])
		if !ok {
			return Callback{}, fmt.Errorf("%w: quality %q", ErrInvalidCallback, parts[1])
		}
		return VideoCallback(parts[2], q), nil
	default:
		return Callback{}, fmt.Errorf("%w: tag %q", ErrInvalidCallback, parts[0])
	}
}
