package queue

import (
	"errors"
	"fmt"
)

// ErrorKind — вид ошибки протокола task queue.
//
// Транспортный слой (вне ядра) маппит kinds на HTTP-коды;
// ядро оперирует только структурированными видами.
type ErrorKind string

const (
	// KindNotFound — task/run/robot plan не найден.
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindBadRequest — некорректный вход: неположительный sequence,
	// пустой batch логов, неподдерживаемая платформа, запрещённый переход.
	KindBadRequest ErrorKind = "BAD_REQUEST"

	// KindForbidden — вызывающий не владеет task.
	KindForbidden ErrorKind = "FORBIDDEN"

	// KindCreateFailed — store отклонил создание записи.
	KindCreateFailed ErrorKind = "CREATE_FAILED"

	// KindUpdateFailed — store отклонил обновление записи.
	KindUpdateFailed ErrorKind = "UPDATE_FAILED"
)

// Error — структурированная ошибка операции queue.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// notFoundf создаёт NOT_FOUND ошибку.
func notFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// badRequestf создаёт BAD_REQUEST ошибку.
func badRequestf(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// forbiddenf создаёт FORBIDDEN ошибку.
func forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// createFailed оборачивает ошибку записи store.
func createFailed(err error, what string) *Error {
	return &Error{Kind: KindCreateFailed, Message: "create " + what, Err: err}
}

// updateFailed оборачивает ошибку обновления store.
func updateFailed(err error, what string) *Error {
	return &Error{Kind: KindUpdateFailed, Message: "update " + what, Err: err}
}

// KindOf возвращает вид ошибки или пустую строку для не-queue ошибок.
func KindOf(err error) ErrorKind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return ""
}
