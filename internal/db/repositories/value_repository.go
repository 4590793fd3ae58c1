package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "infinite-experiment/plp/internal/models/gorm"
)

// ValueRepository stores user data: single-section values and items.
type ValueRepository struct {
	db    *gorm.DB
	Items *RecordStore[models.Item]
}

func NewValueRepository(db *gorm.DB) *ValueRepository {
	return &ValueRepository{db: db, Items: NewRecordStore[models.Item](db)}
}

// GetUserValue returns the stored value of a field for a user; found is false
// when nothing was ever saved.
func (r *ValueRepository) GetUserValue(ctx context.Context, fieldID, userID int64) (value *string, found bool, err error) {
	var v models.UserValue
	err = r.db.WithContext(ctx).
		Where("field_id = ? AND user_id = ?", fieldID, userID).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get user value: %w", err)
	}
	return v.Value, true, nil
}

// PutUserValue overwrites the value of a field for a user in place.
func (r *ValueRepository) PutUserValue(ctx context.Context, fieldID, userID, actorID int64, value *string) error {
	v := models.UserValue{FieldID: fieldID, UserID: userID, Value: value, UpdatedBy: actorID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "field_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
		}).
		Create(&v).Error
	if err != nil {
		return fmt.Errorf("failed to save user value: %w", err)
	}
	return nil
}

func (r *ValueRepository) GetItemValue(ctx context.Context, itemID, fieldID int64) (value *string, found bool, err error) {
	var v models.ItemValue
	err = r.db.WithContext(ctx).
		Where("item_id = ? AND field_id = ?", itemID, fieldID).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get item value: %w", err)
	}
	return v.Value, true, nil
}

func (r *ValueRepository) PutItemValue(ctx context.Context, itemID, fieldID int64, value *string) error {
	v := models.ItemValue{ItemID: itemID, FieldID: fieldID, Value: value}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "field_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&v).Error
	if err != nil {
		return fmt.Errorf("failed to save item value: %w", err)
	}
	return nil
}

// SectionItems lists the items of one user in a section, oldest first.
func (r *ValueRepository) SectionItems(ctx context.Context, sectionID, userID int64) ([]models.Item, error) {
	return r.Items.All(ctx, Filter{"section_id": sectionID, "user_id": userID}, "created_at", "id")
}

// DeleteItem removes an item and its values.
func (r *ValueRepository) DeleteItem(ctx context.Context, itemID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&models.ItemValue{}).Error; err != nil {
			return fmt.Errorf("failed to delete item values: %w", err)
		}
		if err := tx.Where("id = ?", itemID).Delete(&models.Item{}).Error; err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		return nil
	})
}
