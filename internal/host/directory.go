package host

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"infinite-experiment/plp/internal/constants"
	models "infinite-experiment/plp/internal/models/gorm"
)

// SQLDirectory reads users and courses straight from the platform database.
type SQLDirectory struct {
	db *sqlx.DB
}

var (
	_ Users   = (*SQLDirectory)(nil)
	_ Courses = (*SQLDirectory)(nil)
)

func NewSQLDirectory(db *sqlx.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

func (d *SQLDirectory) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := d.db.QueryRowxContext(ctx, constants.GetUserByID, id).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

func (d *SQLDirectory) CourseExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := d.db.QueryRowxContext(ctx, constants.CourseExists, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check course %d: %w", id, err)
	}
	return exists, nil
}

func (d *SQLDirectory) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	err := d.db.QueryRowxContext(ctx, constants.GetCourseByID, id).StructScan(&course)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course %d: %w", id, err)
	}
	return &course, nil
}
