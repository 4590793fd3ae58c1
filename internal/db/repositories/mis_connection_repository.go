package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	models "infinite-experiment/plp/internal/models/gorm"
)

// MISConnectionRepo stores external database connection configs.
type MISConnectionRepo struct {
	db    *gorm.DB
	store *RecordStore[models.MISConnection]
}

func NewMISConnectionRepo(db *gorm.DB) *MISConnectionRepo {
	return &MISConnectionRepo{db: db, store: NewRecordStore[models.MISConnection](db)}
}

// GetByID returns nil, nil when the connection does not exist.
func (r *MISConnectionRepo) GetByID(ctx context.Context, id int64) (*models.MISConnection, error) {
	return r.store.Load(ctx, id)
}

func (r *MISConnectionRepo) GetByName(ctx context.Context, name string) (*models.MISConnection, error) {
	return r.store.LoadBy(ctx, Filter{"name": name})
}

func (r *MISConnectionRepo) List(ctx context.Context) ([]models.MISConnection, error) {
	return r.store.All(ctx, nil, "name")
}

func (r *MISConnectionRepo) Save(ctx context.Context, conn *models.MISConnection) error {
	return r.store.Save(ctx, conn)
}

// SetEnabled flips only the enabled column so no other setting is touched.
func (r *MISConnectionRepo) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.MISConnection{}).
		Where("id = ?", id).
		Update("enabled", enabled)

	if result.Error != nil {
		return fmt.Errorf("failed to update connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("connection not found")
	}
	return nil
}

func (r *MISConnectionRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.MISConnection{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("connection not found")
	}
	return nil
}
