package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `bun:",nullzero" json:"username"`
	PasswordHash string    `json:"-"` // Never expose password hash
	LastName     string    `json:"last_name"`
	FirstName    string    `json:"first_name"`
	MiddleName   *string   `json:"middle_name,omitempty"`
	RoleID       int       `json:"role_id"`

	// Relations
	Role *Role `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
}

// Can reports whether the user's role grants the given capability.
func (u *User) Can(capability Capability) bool {
	if u.Role == nil {
		return false
	}
	return u.Role.Can(capability)
}

// FullName returns "Last First Middle" with empty parts skipped.
func (u *User) FullName() string {
	parts := []string{}
	for _, p := range []string{u.LastName, u.FirstName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if u.MiddleName != nil && *u.MiddleName != "" {
		parts = append(parts, *u.MiddleName)
	}
	return strings.Join(parts, " ")
}
