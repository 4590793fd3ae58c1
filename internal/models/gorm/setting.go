package gorm

import "infinite-experiment/plp/internal/constants"

// Setting is a generic key/value owned by a plugin, page, section or field.
type Setting struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerType string `gorm:"column:owner_type;uniqueIndex:idx_setting_owner;type:varchar(20);not null"`
	OwnerID   int64  `gorm:"column:owner_id;uniqueIndex:idx_setting_owner;not null"`
	Name      string `gorm:"column:name;uniqueIndex:idx_setting_owner;not null"`
	Value     string `gorm:"column:value;type:text"`
}

func (Setting) TableName() string {
	return "plp_settings"
}

func (s Setting) GetID() int64 { return s.ID }

// Permission is one (role, action) bit on a plugin, page or section.
type Permission struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	RefType    string         `gorm:"column:ref_type;index:idx_perm_ref;type:varchar(20);not null"`
	RefID      int64          `gorm:"column:ref_id;index:idx_perm_ref;not null"`
	Role       constants.Role `gorm:"column:role;type:varchar(50);not null"`
	Permission string         `gorm:"column:permission;type:varchar(20);not null"`
	Allowed    bool           `gorm:"column:allowed"`
}

func (Permission) TableName() string {
	return "plp_permissions"
}

func (p Permission) GetID() int64 { return p.ID }
