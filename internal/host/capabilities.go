package host

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"infinite-experiment/plp/internal/constants"
	models "infinite-experiment/plp/internal/models/gorm"
)

// GormCapabilities answers capability checks from the platform role tables.
// System level assignments apply in every context.
type GormCapabilities struct {
	db *gorm.DB
}

var _ Capabilities = (*GormCapabilities)(nil)

func NewGormCapabilities(db *gorm.DB) *GormCapabilities {
	return &GormCapabilities{db: db}
}

func (c *GormCapabilities) CandidateContexts(ctx context.Context, subjectID int64) ([]TrustContext, error) {
	var courseIDs []int64
	err := c.db.WithContext(ctx).
		Model(&models.CourseEnrolment{}).
		Where("user_id = ?", subjectID).
		Order("course_id").
		Distinct().
		Pluck("course_id", &courseIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrolments: %w", err)
	}

	out := make([]TrustContext, 0, len(courseIDs)+2)
	out = append(out, SystemContext())
	for _, id := range courseIDs {
		out = append(out, CourseContext(id))
	}
	out = append(out, UserContext(subjectID))
	return out, nil
}

func (c *GormCapabilities) assignments(ctx context.Context, userID int64, contexts []TrustContext) *gorm.DB {
	q := c.db.WithContext(ctx).
		Table("role_assignments ra").
		Where("ra.user_id = ?", userID)

	cond := c.db.Where("ra.context_level = ?", constants.ContextSystem)
	for _, tc := range contexts {
		if tc.Level == constants.ContextSystem {
			continue
		}
		cond = cond.Or("ra.context_level = ? AND ra.instance_id = ?", tc.Level, tc.InstanceID)
	}
	return q.Where(cond)
}

func (c *GormCapabilities) HasCapability(ctx context.Context, capability string, tc TrustContext, userID int64) (bool, error) {
	var count int64
	err := c.assignments(ctx, userID, []TrustContext{tc}).
		Joins("JOIN role_capabilities rc ON rc.role_id = ra.role_id").
		Where("rc.capability = ?", capability).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check capability %s: %w", capability, err)
	}
	return count > 0, nil
}

func (c *GormCapabilities) UserRoles(ctx context.Context, userID int64, contexts []TrustContext) ([]constants.Role, error) {
	var roles []constants.Role
	err := c.assignments(ctx, userID, contexts).
		Joins("JOIN roles r ON r.id = ra.role_id").
		Distinct().
		Pluck("r.shortname", &roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}
