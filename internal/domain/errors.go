package domain

import "errors"

var (
	// ErrResolveFailed — резолвер не смог получить данные о ролике.
	ErrResolveFailed = errors.New("video resolve failed")
	// ErrInvalidCallback — данные кнопки не распознаны.
	ErrInvalidCallback = errors.New("invalid callback data")
	// ErrProviderUnavailable — внешний сервис не настроен.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrNotFound — запись отсутствует или истекла.
	ErrNotFound = errors.New("not found")
	// ErrInvalidURL — ссылка не похожа на ролик YouTube.
	ErrInvalidURL = errors.New("invalid video url")
)
