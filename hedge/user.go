package hedge

import "slices"

// Role IDs that may run lifecycle transitions.
const (
	RoleHedgeAdmin      = 24
	RoleHedgeAccountant = 17
	RoleAdministrator   = 5
)

// User is the actor working a relationship.
type User struct {
	Name  string `json:"name" yaml:"name"`
	Roles []int  `json:"roles" yaml:"roles"`
	// DPI users get the reduced, single-instrument option set.
	DPI bool `json:"dpi" yaml:"dpi"`
}

func (u User) HasRole(id int) bool {
	return slices.Contains(u.Roles, id)
}
