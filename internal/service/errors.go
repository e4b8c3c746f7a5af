package service

import (
	"errors"

	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/internal/repository"
)

// ErrInvalidQuery неверные параметры запроса
var ErrInvalidQuery = errors.New("invalid query")

// IsBadRequest ошибка вызвана входными данными
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidQuery) ||
		errors.Is(err, longterm.ErrInvalidDetection) ||
		errors.Is(err, longterm.ErrInvalidConfig) ||
		errors.Is(err, longterm.ErrMissingReferenceTime)
}

// IsNotFound запись не найдена
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
