package store

import "errors"

// Общие ошибки record store.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists — запись с таким id уже существует.
	ErrAlreadyExists = errors.New("record already exists")
)
