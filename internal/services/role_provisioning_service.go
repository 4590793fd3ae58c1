package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"infinite-experiment/plp/internal/config"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/logging"
	models "infinite-experiment/plp/internal/models/gorm"
)

// RoleStatus reports what EnsureRoles did for one preset.
type RoleStatus struct {
	ShortName string
	RoleID    int64
	Created   bool
	Granted   int
}

func (s RoleStatus) String() string {
	state := "exists"
	if s.Created {
		state = "created"
	}
	return fmt.Sprintf("%s (id %d): %s, %d capabilities granted", s.ShortName, s.RoleID, state, s.Granted)
}

// RoleProvisioningService creates the platform roles the plan relies on.
// Running it again changes nothing.
type RoleProvisioningService struct {
	db *gorm.DB
}

func NewRoleProvisioningService(db *gorm.DB) *RoleProvisioningService {
	return &RoleProvisioningService{db: db}
}

func (s *RoleProvisioningService) EnsureRoles(ctx context.Context, presets []config.RolePreset) ([]RoleStatus, error) {
	out := make([]RoleStatus, 0, len(presets))
	for _, preset := range presets {
		status, err := s.ensureRole(ctx, preset)
		if err != nil {
			return out, err
		}
		logging.Info("Role ensured", "role", status.ShortName, "role_id", status.RoleID, "created", status.Created, "granted", status.Granted)
		out = append(out, status)
	}
	return out, nil
}

func (s *RoleProvisioningService) ensureRole(ctx context.Context, preset config.RolePreset) (RoleStatus, error) {
	db := s.db.WithContext(ctx)
	status := RoleStatus{ShortName: preset.ShortName}

	var role models.Role
	res := db.Where("shortname = ?", preset.ShortName).Limit(1).Find(&role)
	if res.Error != nil {
		return status, fmt.Errorf("failed to look up role %s: %w", preset.ShortName, res.Error)
	}
	if res.RowsAffected == 0 {
		role = models.Role{ShortName: constants.Role(preset.ShortName), Name: preset.Name}
		if err := db.Create(&role).Error; err != nil {
			return status, fmt.Errorf("failed to create role %s: %w", preset.ShortName, err)
		}
		status.Created = true
	}
	status.RoleID = role.ID

	for _, capability := range preset.Capabilities {
		var count int64
		err := db.Model(&models.RoleCapability{}).
			Where("role_id = ? AND capability = ?", role.ID, capability).
			Count(&count).Error
		if err != nil {
			return status, fmt.Errorf("failed to check %s on %s: %w", capability, preset.ShortName, err)
		}
		if count > 0 {
			continue
		}
		grant := models.RoleCapability{RoleID: role.ID, Capability: capability}
		if err := db.Create(&grant).Error; err != nil {
			return status, fmt.Errorf("failed to grant %s to %s: %w", capability, preset.ShortName, err)
		}
		status.Granted++
	}
	return status, nil
}
