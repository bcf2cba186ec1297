package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Spok95/bqs/internal/models"
)

const userSelect = `
SELECT u.id, u.name, u.email, u.is_active, u.telegram_id,
       COALESCE(string_agg(r.role, ',' ORDER BY r.role), '') AS roles
FROM users u
LEFT JOIN user_roles r ON r.user_id = u.id`

func scanUser(sc interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u     models.User
		tgID  sql.NullInt64
		roles string
	)
	if err := sc.Scan(&u.ID, &u.Name, &u.Email, &u.IsActive, &tgID, &roles); err != nil {
		return nil, err
	}
	if tgID.Valid {
		id := tgID.Int64
		u.TelegramID = &id
	}
	for _, r := range strings.Split(roles, ",") {
		if role, ok := models.ParseRole(r); ok {
			u.Roles = append(u.Roles, role)
		}
	}
	return &u, nil
}

// ListUsers: весь справочник пользователей с ролями.
func ListUsers(ctx context.Context, q Querier) ([]models.User, error) {
	rows, err := q.QueryContext(ctx, userSelect+` GROUP BY u.id ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// GetUserByID: nil, nil если пользователя нет.
func GetUserByID(ctx context.Context, q Querier, id string) (*models.User, error) {
	row := q.QueryRowContext(ctx, userSelect+` WHERE u.id = $1 GROUP BY u.id`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// UpsertUser создаёт или обновляет пользователя и полностью заменяет набор ролей.
func UpsertUser(ctx context.Context, database *sql.DB, u models.User) error {
	return WithTx(ctx, database, func(tx *sql.Tx) error {
		var tgID sql.NullInt64
		if u.TelegramID != nil {
			tgID = sql.NullInt64{Int64: *u.TelegramID, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, name, email, is_active, telegram_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = excluded.name, email = excluded.email,
			    is_active = excluded.is_active, telegram_id = excluded.telegram_id
		`, u.ID, u.Name, u.Email, u.IsActive, tgID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, u.ID); err != nil {
			return err
		}
		for _, r := range u.Roles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				u.ID, string(r)); err != nil {
				return err
			}
		}
		return nil
	})
}
