package repository

import "errors"

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("record not found")
