package ctxutil

import (
	"context"
	"time"

	"github.com/Spok95/bqs/internal/models"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyUserID key = iota
	keyRole
	keyOpName
)

// Caller: кто вызывает операцию (id пользователя и роль, под которой он смотрит).
type Caller struct {
	UserID string
	Role   models.Role
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	ctx = context.WithValue(ctx, keyUserID, c.UserID)
	return context.WithValue(ctx, keyRole, c.Role)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	id, ok := ctx.Value(keyUserID).(string)
	if !ok {
		return Caller{}, false
	}
	role, _ := ctx.Value(keyRole).(models.Role)
	return Caller{UserID: id, Role: role}, true
}

// WithOp /Op: имя операции (для логов/трейса)
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(keyOpName).(string)
	return s, ok
}

// DefaultDBTimeout переопределяется из DB_TIMEOUT при старте.
var DefaultDBTimeout = 5 * time.Second

// WithDBTimeout: стандартный таймаут для БД.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		// у родителя осталось меньше: берём остаток
		if remain := time.Until(dl); remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
