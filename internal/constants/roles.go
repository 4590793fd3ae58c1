package constants

import (
	"database/sql/driver"
	"fmt"
)

// Role is a platform role shortname as stored on permission grants.
type Role string

const (
	RoleManager Role = "manager"
	RoleTutor   Role = "plp_tutor"
	RoleStudent Role = "plp_student"
)

// Stringer ­– convenient for fmt / logs
func (r Role) String() string { return string(r) }

/* ---------- DB adapters so sqlx (or database/sql) scans/values cleanly ---------- */

// Scan implements the sql.Scanner interface
func (r *Role) Scan(src interface{}) error {
	if src == nil {
		*r = ""
		return nil
	}
	switch v := src.(type) {
	case string:
		*r = Role(v)
	case []byte:
		*r = Role(v)
	default:
		return fmt.Errorf("Role: cannot scan type %T", src)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (r Role) Value() (driver.Value, error) { return string(r), nil }

// Role permission actions stored in plp_permissions.
const (
	ActionView   = "view"
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Reference types for plp_permissions and plp_settings owners.
const (
	RefPlugin  = "plugin"
	RefPage    = "page"
	RefSection = "section"
	RefField   = "field"
)
