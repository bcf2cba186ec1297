package workflow

import (
	"errors"
	"fmt"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/observability"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindValidation
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindStore:
		return "store"
	}
	return "unknown"
}

// Error: ошибка движка: вид и одно человекочитаемое предложение.
// Err (причина) наружу не отдаётся, только в логи.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf: вид ошибки; всё, что не *Error, считается сбоем хранилища.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Message: то, что можно показать вызывающему.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "storage failure"
}

func notFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// storeErr заворачивает ошибку базы. Уже типизированные ошибки проходят как есть,
// гонка за уникальный ключ превращается в конфликт, ссылка на удалённого
// пользователя в NotFound.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if db.IsUniqueViolation(err) {
		return &Error{Kind: KindConflict, Msg: "the assessment was changed concurrently, retry the operation", Err: err}
	}
	if db.IsForeignKeyViolation(err) {
		return &Error{Kind: KindNotFound, Msg: "user not found", Err: fmt.Errorf("%s: %w", op, err)}
	}
	observability.CaptureErr(fmt.Errorf("%s: %w", op, err))
	return &Error{Kind: KindStore, Msg: "storage failure", Err: fmt.Errorf("%s: %w", op, err)}
}
