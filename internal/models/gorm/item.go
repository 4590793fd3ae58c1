package gorm

import "time"

// Item is one instance of repeatable data in a multi or incremental section.
type Item struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	SectionID int64     `gorm:"column:section_id;index;not null"`
	UserID    int64     `gorm:"column:user_id;index;not null"`
	CreatedBy int64     `gorm:"column:created_by"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Item) TableName() string {
	return "plp_items"
}

func (i Item) GetID() int64 { return i.ID }

type ItemValue struct {
	ID      int64   `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID  int64   `gorm:"column:item_id;uniqueIndex:idx_item_field;not null"`
	FieldID int64   `gorm:"column:field_id;uniqueIndex:idx_item_field;not null"`
	Value   *string `gorm:"column:value;type:text"`
}

func (ItemValue) TableName() string {
	return "plp_item_values"
}

func (v ItemValue) GetID() int64 { return v.ID }

// UserValue stores the single current value of a field in a single section.
type UserValue struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	FieldID   int64     `gorm:"column:field_id;uniqueIndex:idx_field_user;not null"`
	UserID    int64     `gorm:"column:user_id;uniqueIndex:idx_field_user;not null"`
	Value     *string   `gorm:"column:value;type:text"`
	UpdatedBy int64     `gorm:"column:updated_by"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserValue) TableName() string {
	return "plp_user_values"
}

func (v UserValue) GetID() int64 { return v.ID }
