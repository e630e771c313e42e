package models

import (
	"github.com/uptrace/bun"
)

// Role names. These are the only three roles the application knows about;
// they are seeded at install time and never created through the API.
const (
	RoleAdministrator = "Администратор"
	RoleModerator     = "Модератор"
	RoleUser          = "Пользователь"
)

// Capability is a named action a role may perform. Handlers check
// capabilities instead of comparing role names inline.
type Capability string

const (
	CapabilityCreateBooks Capability = "books:create"
	CapabilityEditBooks   Capability = "books:edit"
	CapabilityDeleteBooks Capability = "books:delete"
)

var roleCapabilities = map[string]map[Capability]bool{
	RoleAdministrator: {
		CapabilityCreateBooks: true,
		CapabilityEditBooks:   true,
		CapabilityDeleteBooks: true,
	},
	RoleModerator: {
		CapabilityEditBooks: true,
	},
	RoleUser: {},
}

type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          int    `bun:",pk,nullzero" json:"id"`
	Name        string `bun:",nullzero" json:"name"`
	Description string `json:"description"`
}

// Can reports whether the role grants the given capability.
func (r *Role) Can(capability Capability) bool {
	return roleCapabilities[r.Name][capability]
}
