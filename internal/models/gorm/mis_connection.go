package gorm

import "time"

// MISConnection is the stored configuration of one external database.
type MISConnection struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	Driver    string    `gorm:"column:driver;type:varchar(20);not null"`
	Host      string    `gorm:"column:host"`
	Username  string    `gorm:"column:username"`
	Password  string    `gorm:"column:password"`
	Database  string    `gorm:"column:database_name"`
	Enabled   bool      `gorm:"column:enabled"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (MISConnection) TableName() string {
	return "plp_mis_connections"
}

func (c MISConnection) GetID() int64 { return c.ID }
