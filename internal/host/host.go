// Package host holds the collaborators the plan service borrows from the
// learning platform: capability checks, users, courses, files and templates.
package host

import (
	"context"
	"fmt"
	"io"

	"infinite-experiment/plp/internal/constants"
	models "infinite-experiment/plp/internal/models/gorm"
)

// TrustContext is a scope in which a capability can be granted.
type TrustContext struct {
	Level      constants.ContextLevel `json:"level"`
	InstanceID int64                  `json:"instance_id"`
}

func SystemContext() TrustContext { return TrustContext{Level: constants.ContextSystem} }

func CourseContext(courseID int64) TrustContext {
	return TrustContext{Level: constants.ContextCourse, InstanceID: courseID}
}

func UserContext(userID int64) TrustContext {
	return TrustContext{Level: constants.ContextUser, InstanceID: userID}
}

func (c TrustContext) String() string {
	if c.Level == constants.ContextSystem {
		return string(c.Level)
	}
	return fmt.Sprintf("%s:%d", c.Level, c.InstanceID)
}

type Capabilities interface {
	// CandidateContexts lists every context in which someone may relate to the subject.
	CandidateContexts(ctx context.Context, subjectID int64) ([]TrustContext, error)
	HasCapability(ctx context.Context, capability string, tc TrustContext, userID int64) (bool, error)
	// UserRoles returns the roles a user holds in any of the contexts.
	UserRoles(ctx context.Context, userID int64, contexts []TrustContext) ([]constants.Role, error)
}

type Users interface {
	// GetUser returns nil, nil for an unknown id.
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

type Courses interface {
	CourseExists(ctx context.Context, id int64) (bool, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
}

// Upload is one file received with a submission.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Close releases the content when it is an open file.
func (u *Upload) Close() error {
	if c, ok := u.Content.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type FileStore interface {
	StoreUploadedFile(ctx context.Context, userID int64, upload *Upload) (*models.File, error)
	GetFile(ctx context.Context, id int64) (*models.File, error)
	Open(ctx context.Context, file *models.File) (io.ReadCloser, error)
}

type Renderer interface {
	Render(w io.Writer, template string, data any) error
}
