package gorm

import (
	"time"

	"infinite-experiment/plp/internal/constants"
)

// The tables below belong to the host platform. The plan service only reads
// them, except for roles which `plpctl ensure-roles` provisions.

type User struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement" db:"id"`
	Username  string `gorm:"column:username;uniqueIndex" db:"username"`
	Email     string `gorm:"column:email" db:"email"`
	IDNumber  string `gorm:"column:idnumber" db:"idnumber"`
	FirstName string `gorm:"column:firstname" db:"firstname"`
	LastName  string `gorm:"column:lastname" db:"lastname"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Course struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement" db:"id"`
	FullName  string `gorm:"column:fullname" db:"fullname"`
	ShortName string `gorm:"column:shortname" db:"shortname"`
}

func (Course) TableName() string {
	return "courses"
}

type CourseEnrolment struct {
	ID       int64 `gorm:"column:id;primaryKey;autoIncrement"`
	CourseID int64 `gorm:"column:course_id;index;not null"`
	UserID   int64 `gorm:"column:user_id;index;not null"`
}

func (CourseEnrolment) TableName() string {
	return "course_enrolments"
}

type Role struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	ShortName constants.Role `gorm:"column:shortname;uniqueIndex;type:varchar(50)"`
	Name      string         `gorm:"column:name"`
}

func (Role) TableName() string {
	return "roles"
}

type RoleCapability struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RoleID     int64  `gorm:"column:role_id;uniqueIndex:idx_role_cap;not null"`
	Capability string `gorm:"column:capability;uniqueIndex:idx_role_cap;not null"`
}

func (RoleCapability) TableName() string {
	return "role_capabilities"
}

// RoleAssignment gives a user a role in one trust context. A user-level
// assignment (e.g. a mentor over a student) carries the subject's id as InstanceID.
type RoleAssignment struct {
	ID           int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	RoleID       int64                  `gorm:"column:role_id;index;not null"`
	UserID       int64                  `gorm:"column:user_id;index;not null"`
	ContextLevel constants.ContextLevel `gorm:"column:context_level;type:varchar(10);not null"`
	InstanceID   int64                  `gorm:"column:instance_id"`
}

func (RoleAssignment) TableName() string {
	return "role_assignments"
}

// File is a stored upload; the content lives in object storage under ObjectName.
type File struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ObjectName  string    `gorm:"column:object_name;uniqueIndex;not null"`
	FileName    string    `gorm:"column:filename"`
	ContentType string    `gorm:"column:content_type"`
	Size        int64     `gorm:"column:size"`
	UserID      int64     `gorm:"column:user_id;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (File) TableName() string {
	return "files"
}

func (f File) GetID() int64 { return f.ID }

// AllModels lists every table for AutoMigrate.
func AllModels() []any {
	return []any{
		&Plugin{}, &Page{}, &Section{}, &Field{},
		&Item{}, &ItemValue{}, &UserValue{},
		&Setting{}, &Permission{}, &MISConnection{},
		&User{}, &Course{}, &CourseEnrolment{},
		&Role{}, &RoleCapability{}, &RoleAssignment{}, &File{},
	}
}
