package gorm

import "time"

// Plugin is a configurable content module contributing pages to a learning plan.
type Plugin struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	Title     string    `gorm:"column:title"`
	Enabled   bool      `gorm:"column:enabled"`
	Version   int64     `gorm:"column:version;default:1"`
	Custom    bool      `gorm:"column:custom"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Plugin) TableName() string {
	return "plp_plugins"
}

func (p Plugin) GetID() int64 { return p.ID }

type Page struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	PluginID  int64  `gorm:"column:plugin_id;index;not null"`
	Title     string `gorm:"column:title"`
	SortOrder int    `gorm:"column:sortorder;default:0"`
	Enabled   bool   `gorm:"column:enabled"`
}

func (Page) TableName() string {
	return "plp_pages"
}

func (p Page) GetID() int64 { return p.ID }

type Section struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement"`
	PageID          int64  `gorm:"column:page_id;index;not null"`
	Title           string `gorm:"column:title"`
	Type            string `gorm:"column:type;type:varchar(20);not null"`
	Location        string `gorm:"column:location;type:varchar(10);default:'centre'"`
	SortOrder       int    `gorm:"column:sortorder;default:0"`
	Confidentiality string `gorm:"column:confidentiality;type:varchar(20)"`
	Enabled         bool   `gorm:"column:enabled"`
	MISConnectionID *int64 `gorm:"column:mis_connection_id"`
}

func (Section) TableName() string {
	return "plp_sections"
}

func (s Section) GetID() int64 { return s.ID }

// Field.Options holds the type dependent JSON blob; Validation holds a
// comma separated list of validator tags.
type Field struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement"`
	SectionID    int64  `gorm:"column:section_id;index;not null"`
	Title        string `gorm:"column:title"`
	Type         string `gorm:"column:type;type:varchar(20);not null"`
	Options      string `gorm:"column:options;type:text"`
	DefaultValue string `gorm:"column:default_value;type:text"`
	Placeholder  string `gorm:"column:placeholder"`
	Validation   string `gorm:"column:validation"`
	Instructions string `gorm:"column:instructions;type:text"`
	SortOrder    int    `gorm:"column:sortorder;default:0"`
}

func (Field) TableName() string {
	return "plp_fields"
}

func (f Field) GetID() int64 { return f.ID }
