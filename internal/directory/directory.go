package directory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/Spok95/bqs/internal/db"
	"github.com/Spok95/bqs/internal/models"
)

// Directory: справочник пользователей и ролей в памяти процесса.
// Для движка только чтение; обновляется оператором через Reload.
type Directory struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func New(users []models.User) *Directory {
	d := &Directory{}
	d.Replace(users)
	return d
}

// Load строит справочник из базы.
func Load(ctx context.Context, database *sql.DB) (*Directory, error) {
	d := &Directory{}
	if err := d.Reload(ctx, database); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Directory) Reload(ctx context.Context, database *sql.DB) error {
	users, err := db.ListUsers(ctx, database)
	if err != nil {
		return err
	}
	d.Replace(users)
	return nil
}

func (d *Directory) Replace(users []models.User) {
	m := make(map[string]models.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	d.mu.Lock()
	d.users = m
	d.mu.Unlock()
}

// Get: пользователь по id; ok=false если его нет.
func (d *Directory) Get(id string) (models.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	return u, ok
}

// HasRole: активный пользователь с такой ролью.
func (d *Directory) HasRole(id string, r models.Role) bool {
	u, ok := d.Get(id)
	return ok && u.IsActive && u.HasRole(r)
}

func (d *Directory) Name(id string) string {
	if u, ok := d.Get(id); ok {
		return u.Name
	}
	return ""
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}
