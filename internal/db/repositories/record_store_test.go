package repositories

import (
	"context"
	"errors"
	"testing"

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

func strPtr(s string) *string { return &s }

func TestRecordStore_SaveInsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore[models.MISConnection](setupTestDB(t))

	conn := &models.MISConnection{Name: "sis", Driver: "pgsql", Host: "db", Enabled: true}
	assert.False(t, store.Exists(*conn))
	require.NoError(t, store.Save(ctx, conn))
	require.NotZero(t, conn.ID)
	assert.True(t, store.Exists(*conn))

	// every column is written on update, including zero values
	conn.Enabled = false
	conn.Host = ""
	require.NoError(t, store.Save(ctx, conn))

	loaded, err := store.Load(ctx, conn.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.False(t, loaded.Enabled)
	assert.Empty(t, loaded.Host)
	assert.Equal(t, "sis", loaded.Name)
}

func TestRecordStore_LoadMissingIsNil(t *testing.T) {
	store := NewRecordStore[models.Item](setupTestDB(t))

	rec, err := store.Load(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = store.LoadBy(context.Background(), Filter{"user_id": int64(7)})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecordStore_AllFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore[models.Item](setupTestDB(t))

	for _, it := range []models.Item{
		{SectionID: 1, UserID: 5},
		{SectionID: 1, UserID: 6},
		{SectionID: 2, UserID: 5},
		{SectionID: 1, UserID: 5},
	} {
		it := it
		require.NoError(t, store.Save(ctx, &it))
	}

	items, err := store.All(ctx, Filter{"section_id": int64(1), "user_id": int64(5)})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Less(t, items[0].ID, items[1].ID)

	items, err = store.All(ctx, nil, "id DESC")
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, int64(4), items[0].ID)
}

func TestRecordStore_UnknownFilterColumn(t *testing.T) {
	store := NewRecordStore[models.Item](setupTestDB(t))

	_, err := store.All(context.Background(), Filter{"colour": "red"})
	assert.True(t, errors.Is(err, ErrUnknownProperty))

	// Go field names are not column names
	_, err = store.LoadBy(context.Background(), Filter{"SectionID": int64(1)})
	assert.True(t, errors.Is(err, ErrUnknownProperty))
}

func TestRecordStore_MapRecordIgnoresExtraColumns(t *testing.T) {
	store := NewRecordStore[models.MISConnection](setupTestDB(t))

	var conn models.MISConnection
	err := store.MapRecord(context.Background(), map[string]any{
		"id":            int64(9),
		"name":          "hr",
		"driver":        "mysql",
		"database_name": "people",
		"unrelated":     "ignored",
	}, &conn)
	require.NoError(t, err)

	assert.Equal(t, int64(9), conn.ID)
	assert.Equal(t, "hr", conn.Name)
	assert.Equal(t, "people", conn.Database)
	assert.True(t, store.Exists(conn))
}

func TestRecordStore_Property(t *testing.T) {
	store := NewRecordStore[models.MISConnection](setupTestDB(t))
	conn := &models.MISConnection{Name: "sis", Database: "records"}

	v, err := store.Property(context.Background(), conn, "database_name")
	require.NoError(t, err)
	assert.Equal(t, "records", v)

	v, err = store.Property(context.Background(), conn, "Name")
	require.NoError(t, err)
	assert.Equal(t, "sis", v)

	_, err = store.Property(context.Background(), conn, "port")
	assert.ErrorIs(t, err, ErrUnknownProperty)
}

func TestRecordStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore[models.Item](setupTestDB(t))

	item := &models.Item{SectionID: 1, UserID: 1}
	require.NoError(t, store.Save(ctx, item))
	require.NoError(t, store.Delete(ctx, item.ID))

	rec, err := store.Load(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSettingRepository_SetAllKeepsFirstSaveOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingRepository(setupTestDB(t))

	require.NoError(t, repo.Set(ctx, "plugin", 1, "title_colour", "#fff"))
	require.NoError(t, repo.SetAll(ctx, "plugin", 1,
		map[string]string{"title_colour": "#000", "intro": "Hello"},
		[]string{"intro", "title_colour"}))

	rows, err := repo.List(ctx, "plugin", 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "title_colour", rows[0].Name)
	assert.Equal(t, "#000", rows[0].Value)
	assert.Equal(t, "intro", rows[1].Name)

	other, err := repo.GetAll(ctx, "plugin", 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestValueRepository_UserValues(t *testing.T) {
	ctx := context.Background()
	repo := NewValueRepository(setupTestDB(t))

	_, found, err := repo.GetUserValue(ctx, 10, 1)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.PutUserValue(ctx, 10, 1, 2, strPtr("first")))
	require.NoError(t, repo.PutUserValue(ctx, 10, 1, 1, strPtr("second")))

	v, found, err := repo.GetUserValue(ctx, 10, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", *v)

	// an explicit null is still a stored value
	require.NoError(t, repo.PutUserValue(ctx, 10, 1, 1, nil))
	v, found, err = repo.GetUserValue(ctx, 10, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, v)
}

func TestValueRepository_DeleteItemRemovesValues(t *testing.T) {
	ctx := context.Background()
	repo := NewValueRepository(setupTestDB(t))

	item := &models.Item{SectionID: 3, UserID: 1, CreatedBy: 1}
	require.NoError(t, repo.Items.Save(ctx, item))
	require.NoError(t, repo.PutItemValue(ctx, item.ID, 20, strPtr("a")))
	require.NoError(t, repo.PutItemValue(ctx, item.ID, 20, strPtr("b")))

	v, found, err := repo.GetItemValue(ctx, item.ID, 20)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b", *v)

	items, err := repo.SectionItems(ctx, 3, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, repo.DeleteItem(ctx, item.ID))
	_, found, err = repo.GetItemValue(ctx, item.ID, 20)
	require.NoError(t, err)
	assert.False(t, found)

	items, err = repo.SectionItems(ctx, 3, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPermissionRepository_GrantIsUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewPermissionRepository(setupTestDB(t))

	require.NoError(t, repo.Grant(ctx, "section", 4, constants.RoleTutor, constants.ActionEdit, true))
	require.NoError(t, repo.Grant(ctx, "section", 4, constants.RoleTutor, constants.ActionEdit, false))
	require.NoError(t, repo.Grant(ctx, "section", 4, constants.RoleStudent, constants.ActionView, true))

	perms, err := repo.GetByRef(ctx, "section", 4)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	for _, p := range perms {
		if p.Role == constants.RoleTutor {
			assert.False(t, p.Allowed)
		} else {
			assert.True(t, p.Allowed)
		}
	}
}

func TestMISConnectionRepo_SetEnabledUnknown(t *testing.T) {
	repo := NewMISConnectionRepo(setupTestDB(t))
	err := repo.SetEnabled(context.Background(), 99, true)
	assert.Error(t, err)
}
