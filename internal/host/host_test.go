package host

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"infinite-experiment/plp/internal/constants"
	models "infinite-experiment/plp/internal/models/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// seedRoles gives user 2 the tutor role in course 10 and user 4 the manager
// role at system level. User 1 is a student in courses 10 and 11.
func seedRoles(t *testing.T, db *gorm.DB) {
	t.Helper()
	tutor := models.Role{ShortName: constants.RoleTutor, Name: "Tutor"}
	manager := models.Role{ShortName: constants.RoleManager, Name: "Manager"}
	require.NoError(t, db.Create(&tutor).Error)
	require.NoError(t, db.Create(&manager).Error)

	require.NoError(t, db.Create(&[]models.RoleCapability{
		{RoleID: tutor.ID, Capability: constants.CapView},
		{RoleID: tutor.ID, Capability: constants.CapViewRestricted},
		{RoleID: manager.ID, Capability: constants.CapView},
		{RoleID: manager.ID, Capability: constants.CapManage},
	}).Error)
	require.NoError(t, db.Create(&[]models.RoleAssignment{
		{RoleID: tutor.ID, UserID: 2, ContextLevel: constants.ContextCourse, InstanceID: 10},
		{RoleID: manager.ID, UserID: 4, ContextLevel: constants.ContextSystem},
	}).Error)
	require.NoError(t, db.Create(&[]models.CourseEnrolment{
		{CourseID: 11, UserID: 1},
		{CourseID: 10, UserID: 1},
	}).Error)
}

func TestGormCapabilities_CandidateContexts(t *testing.T) {
	db := setupTestDB(t)
	seedRoles(t, db)
	caps := NewGormCapabilities(db)

	contexts, err := caps.CandidateContexts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []TrustContext{SystemContext(), CourseContext(10), CourseContext(11), UserContext(1)}, contexts)

	contexts, err = caps.CandidateContexts(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, []TrustContext{SystemContext(), UserContext(9)}, contexts)
}

func TestGormCapabilities_HasCapability(t *testing.T) {
	db := setupTestDB(t)
	seedRoles(t, db)
	caps := NewGormCapabilities(db)
	ctx := context.Background()

	tests := []struct {
		name       string
		capability string
		tc         TrustContext
		userID     int64
		want       bool
	}{
		{"tutor in own course", constants.CapView, CourseContext(10), 2, true},
		{"tutor in other course", constants.CapView, CourseContext(11), 2, false},
		{"tutor at system level", constants.CapView, SystemContext(), 2, false},
		{"tutor lacks private", constants.CapViewPrivate, CourseContext(10), 2, false},
		{"manager anywhere", constants.CapManage, CourseContext(11), 4, true},
		{"manager in user context", constants.CapView, UserContext(1), 4, true},
		{"nobody", constants.CapView, SystemContext(), 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := caps.HasCapability(ctx, tt.capability, tt.tc, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestGormCapabilities_UserRoles(t *testing.T) {
	db := setupTestDB(t)
	seedRoles(t, db)
	caps := NewGormCapabilities(db)
	ctx := context.Background()

	roles, err := caps.UserRoles(ctx, 2, []TrustContext{CourseContext(10), UserContext(1)})
	require.NoError(t, err)
	assert.Equal(t, []constants.Role{constants.RoleTutor}, roles)

	roles, err = caps.UserRoles(ctx, 2, []TrustContext{CourseContext(11)})
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestSQLDirectory(t *testing.T) {
	gdb := setupTestDB(t)
	require.NoError(t, gdb.Create(&models.User{ID: 1, Username: "sam", FirstName: "Sam", LastName: "Student"}).Error)
	require.NoError(t, gdb.Create(&models.Course{ID: 10, FullName: "Biology", ShortName: "BIO"}).Error)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	dir := NewSQLDirectory(sqlx.NewDb(sqlDB, "sqlite3"))
	ctx := context.Background()

	user, err := dir.GetUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Sam Student", user.FullName())

	user, err = dir.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, user)

	exists, err := dir.CourseExists(ctx, 10)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = dir.CourseExists(ctx, 11)
	require.NoError(t, err)
	assert.False(t, exists)

	course, err := dir.GetCourse(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "BIO", course.ShortName)
}

type fakeObjects struct {
	puts map[string][]byte
	err  error
}

func (f *fakeObjects) PutObject(_ context.Context, _, objectName string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.puts[objectName] = b
	return minio.UploadInfo{Key: objectName, Size: int64(len(b))}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, _, objectName string, _ minio.GetObjectOptions) (*minio.Object, error) {
	return nil, errors.New("no such key: " + objectName)
}

func TestMinioFileStore_StoreAndGet(t *testing.T) {
	objects := &fakeObjects{puts: map[string][]byte{}}
	store := NewMinioFileStore(objects, "plp-files", setupTestDB(t))
	ctx := context.Background()

	file, err := store.StoreUploadedFile(ctx, 1, &Upload{
		FileName:    "../essay.txt",
		ContentType: "text/plain",
		Size:        5,
		Content:     strings.NewReader("hello"),
	})
	require.NoError(t, err)
	require.NotZero(t, file.ID)
	assert.True(t, strings.HasPrefix(file.ObjectName, "plp/1/"))
	assert.True(t, strings.HasSuffix(file.ObjectName, "-essay.txt"))
	assert.Equal(t, []byte("hello"), objects.puts[file.ObjectName])

	got, err := store.GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "../essay.txt", got.FileName)

	missing, err := store.GetFile(ctx, file.ID+1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = store.Open(ctx, got)
	assert.Error(t, err)
}

func TestMinioFileStore_UploadFailureSavesNothing(t *testing.T) {
	objects := &fakeObjects{puts: map[string][]byte{}, err: errors.New("bucket gone")}
	db := setupTestDB(t)
	store := NewMinioFileStore(objects, "plp-files", db)

	_, err := store.StoreUploadedFile(context.Background(), 1, &Upload{FileName: "a.txt", Content: strings.NewReader("x"), Size: 1})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.File{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTemplateRenderer(t *testing.T) {
	r := NewTemplateRenderer()

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "failure", map[string]string{"Title": "Access denied", "Message": "<b>no</b>"}))
	assert.Contains(t, buf.String(), "<h1>Access denied</h1>")
	assert.Contains(t, buf.String(), "&lt;b&gt;no&lt;/b&gt;")

	assert.Error(t, r.Render(&buf, "missing", nil))
}

func TestTrustContextString(t *testing.T) {
	assert.Equal(t, "system", SystemContext().String())
	assert.Equal(t, "course:10", CourseContext(10).String())
	assert.Equal(t, "user:3", UserContext(3).String())
}
