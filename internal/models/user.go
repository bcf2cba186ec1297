package models

import "strings"

type Role string

const (
	RoleGH Role = "GH" // Global Head
	RolePH Role = "PH" // Practice Head
	RoleSH Role = "SH" // Sales Head
	RoleSA Role = "SA" // Solution Architect
	RoleSP Role = "SP" // Salesperson
)

var AllRoles = []Role{RoleGH, RolePH, RoleSH, RoleSA, RoleSP}

// ParseRole принимает роль в любом регистре.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleGH, RolePH, RoleSH, RoleSA, RoleSP:
		return r, true
	}
	return "", false
}

// IsApprover: роли, которые голосуют за заявку.
func (r Role) IsApprover() bool { return r == RoleGH || r == RolePH || r == RoleSH }

// IsExecutor: роли, которые заполняют оценку.
func (r Role) IsExecutor() bool { return r == RoleSA || r == RoleSP }

type User struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Email      string `db:"email" json:"email"`
	IsActive   bool   `db:"is_active" json:"active"`
	TelegramID *int64 `db:"telegram_id" json:"-"`
	Roles      []Role `db:"-" json:"roles"`
}

func (u *User) HasRole(r Role) bool {
	for _, x := range u.Roles {
		if x == r {
			return true
		}
	}
	return false
}
