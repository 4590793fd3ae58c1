package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "infinite-experiment/plp/internal/models/gorm"
)

// SettingRepository manages key/value settings keyed by owner.
type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// List returns the settings of an owner in the order they were first saved.
func (r *SettingRepository) List(ctx context.Context, ownerType string, ownerID int64) ([]models.Setting, error) {
	var rows []models.Setting
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get settings for %s %d: %w", ownerType, ownerID, err)
	}
	return rows, nil
}

// GetAll returns every setting of an owner keyed by name.
func (r *SettingRepository) GetAll(ctx context.Context, ownerType string, ownerID int64) (map[string]string, error) {
	rows, err := r.List(ctx, ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, s := range rows {
		out[s.Name] = s.Value
	}
	return out, nil
}

// Set upserts one setting.
func (r *SettingRepository) Set(ctx context.Context, ownerType string, ownerID int64, name, value string) error {
	s := models.Setting{OwnerType: ownerType, OwnerID: ownerID, Name: name, Value: value}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_type"}, {Name: "owner_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&s).Error
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", name, err)
	}
	return nil
}

// SetAll upserts settings in key order, stopping at the first failure.
func (r *SettingRepository) SetAll(ctx context.Context, ownerType string, ownerID int64, settings map[string]string, order []string) error {
	for _, name := range order {
		if err := r.Set(ctx, ownerType, ownerID, name, settings[name]); err != nil {
			return err
		}
	}
	return nil
}
