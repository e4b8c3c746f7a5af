package longterm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig неверные пороги детектора
	ErrInvalidConfig = errors.New("invalid detector config")
	// ErrInvalidDetection детекция не прошла проверку
	ErrInvalidDetection = errors.New("invalid detection")
	// ErrMissingReferenceTime не задано опорное время анализа
	ErrMissingReferenceTime = errors.New("reference time is required")
)

// ValidationError описывает неверное поле детекции
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("detection %d: %s %s", e.Index, e.Field, e.Reason)
}

// Is позволяет сравнивать через errors.Is(err, ErrInvalidDetection)
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidDetection
}
