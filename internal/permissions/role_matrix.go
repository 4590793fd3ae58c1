package permissions

import (
	"context"

	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/db/repositories"
)

// RoleMatrix holds the (role, action) bits attached to one plan object.
type RoleMatrix map[constants.Role]map[string]bool

// LoadRoleMatrix reads the grants of one object.
func LoadRoleMatrix(ctx context.Context, repo *repositories.PermissionRepository, refType string, refID int64) (RoleMatrix, error) {
	perms, err := repo.GetByRef(ctx, refType, refID)
	if err != nil {
		return nil, err
	}

	m := make(RoleMatrix)
	for _, p := range perms {
		if m[p.Role] == nil {
			m[p.Role] = make(map[string]bool)
		}
		m[p.Role][p.Permission] = p.Allowed
	}
	return m, nil
}

// CanRolesDo is true iff any of roles has the action bit set.
func (m RoleMatrix) CanRolesDo(action string, roles ...constants.Role) bool {
	for _, role := range roles {
		if m[role][action] {
			return true
		}
	}
	return false
}
