package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Role is the caller's role as supplied by the identity layer.
type Role string

// Known roles.
const (
	RoleSuperAdmin Role = "superadmin"
	RoleDev        Role = "dev"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

// ParseRole normalizes a role string. Unknown roles are returned as-is and
// rejected later by AccessScope.Validate.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// AccessScope identifies who is asking and therefore which rows are visible.
type AccessScope struct {
	Role      Role   `json:"role" yaml:"role"`
	AccountID string `json:"accountId,omitempty" yaml:"account_id,omitempty"`
	UserID    string `json:"userId,omitempty" yaml:"user_id,omitempty"`
}

// Validate ensures the scope carries the identifier its role is restricted by.
// A scope that cannot be restricted is rejected, never widened.
func (s AccessScope) Validate() error {
	switch s.Role {
	case RoleSuperAdmin, RoleDev:
		return nil
	case RoleAdmin:
		if strings.TrimSpace(s.AccountID) == "" {
			return eris.New("scope: admin role requires an account id")
		}
		return nil
	case RoleUser:
		if strings.TrimSpace(s.UserID) == "" {
			return eris.New("scope: user role requires a user id")
		}
		return nil
	case "":
		return eris.New("scope: role is required")
	default:
		return eris.Errorf("scope: unknown role %q", s.Role)
	}
}
