package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"infinite-experiment/plp/internal/constants"
	models "infinite-experiment/plp/internal/models/gorm"
)

// PermissionRepository manages role-scoped permission bits on plan objects.
type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) GetByRef(ctx context.Context, refType string, refID int64) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.db.WithContext(ctx).
		Where("ref_type = ? AND ref_id = ?", refType, refID).
		Find(&perms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions for %s %d: %w", refType, refID, err)
	}
	return perms, nil
}

// Grant sets one (role, permission) bit, inserting it when missing.
func (r *PermissionRepository) Grant(ctx context.Context, refType string, refID int64, role constants.Role, permission string, allowed bool) error {
	var p models.Permission
	err := r.db.WithContext(ctx).
		Where(models.Permission{RefType: refType, RefID: refID, Role: role, Permission: permission}).
		Assign(map[string]any{"allowed": allowed}).
		FirstOrCreate(&p).Error
	if err != nil {
		return fmt.Errorf("failed to grant %s to %s: %w", permission, role, err)
	}
	return nil
}
