package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/config"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/db"
	"infinite-experiment/plp/internal/db/repositories"
	"infinite-experiment/plp/internal/fields"
	"infinite-experiment/plp/internal/host"
	"infinite-experiment/plp/internal/metrics"
	"infinite-experiment/plp/internal/mis"
	models "infinite-experiment/plp/internal/models/gorm"
	"infinite-experiment/plp/internal/plan"
)

var (
	student  = &models.User{ID: 1, Username: "student", FirstName: "Sam", LastName: "Student"}
	tutor    = &models.User{ID: 2, Username: "tutor", FirstName: "Tia", LastName: "Tutor"}
	stranger = &models.User{ID: 3, Username: "stranger"}
)

type fakeUsers map[int64]*models.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) {
	return f[id], nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// --- external connections ---

func newMISService(t *testing.T, connect ConnectFunc) (*MISConnectionService, *repositories.MISConnectionRepo, *metrics.MetricsRegistry) {
	t.Helper()
	repo := repositories.NewMISConnectionRepo(setupTestDB(t))
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	return NewMISConnectionService(repo, connect, reg), repo, reg
}

func sqliteConnect(t *testing.T, calls *int) ConnectFunc {
	return func(_ context.Context, driver, _, _, _, _ string) (*mis.Connection, error) {
		*calls++
		x, err := sqlx.Open("sqlite3", ":memory:")
		require.NoError(t, err)
		return mis.Wrap(x, mis.DriverType(driver)), nil
	}
}

func TestMISConnectionService_CreateValidates(t *testing.T) {
	svc, _, _ := newMISService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &SaveMISConnectionRequest{Name: " ", Driver: "oracle", Host: "db"})
	var fe common.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "name")
	assert.Contains(t, fe, "driver")
	assert.Contains(t, fe, "database")

	resp, err := svc.Create(ctx, &SaveMISConnectionRequest{Name: "sis", Driver: "pgsql", Host: "db", Database: "sis", Password: "secret"})
	require.NoError(t, err)
	assert.NotZero(t, resp.ID)

	_, err = svc.Create(ctx, &SaveMISConnectionRequest{Name: "sis", Driver: "mysql", Host: "db2", Database: "x"})
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe["name"], "already exists")

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pgsql", list[0].Driver)
}

func TestMISConnectionService_ToggleTwiceRestoresState(t *testing.T) {
	svc, repo, _ := newMISService(t, nil)
	ctx := context.Background()

	conn := &models.MISConnection{Name: "sis", Driver: "mysql", Host: "db", Username: "u", Password: "p", Database: "sis", Enabled: true}
	require.NoError(t, repo.Save(ctx, conn))

	resp, err := svc.Toggle(ctx, conn.ID)
	require.NoError(t, err)
	assert.False(t, resp.Enabled)

	resp, err = svc.Toggle(ctx, conn.ID)
	require.NoError(t, err)
	assert.True(t, resp.Enabled)

	stored, err := repo.GetByID(ctx, conn.ID)
	require.NoError(t, err)
	assert.True(t, stored.Enabled)
	assert.Equal(t, "p", stored.Password)
	assert.Equal(t, "sis", stored.Database)

	// setting the current value again is a no-op
	resp, err = svc.SetEnabled(ctx, conn.ID, true)
	require.NoError(t, err)
	assert.True(t, resp.Enabled)

	_, err = svc.Toggle(ctx, 999)
	assert.Equal(t, constants.ErrCodeConnectionNotFound, common.CodeOf(err))
}

func TestMISConnectionService_Open(t *testing.T) {
	calls := 0
	svc, repo, reg := newMISService(t, sqliteConnect(t, &calls))
	ctx := context.Background()

	_, err := svc.Open(ctx, 42)
	assert.Equal(t, constants.ErrCodeConnectionNotFound, common.CodeOf(err))
	assert.True(t, common.IsKind(err, common.KindConnection))

	conn := &models.MISConnection{Name: "sis", Driver: "mysql", Host: "db", Database: "sis", Enabled: false}
	require.NoError(t, repo.Save(ctx, conn))

	_, err = svc.Open(ctx, conn.ID)
	assert.Equal(t, constants.ErrCodeConnectionDisabled, common.CodeOf(err))
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ConnectFailures.WithLabelValues(constants.ErrCodeConnectionDisabled)))

	require.NoError(t, svc.Test(ctx, conn.ID), "test ignores the enabled flag")
	assert.Equal(t, 1, calls)

	_, err = svc.SetEnabled(ctx, conn.ID, true)
	require.NoError(t, err)
	live, err := svc.Open(ctx, conn.ID)
	require.NoError(t, err)
	defer live.Close()
	assert.Equal(t, mis.MySQL, live.Driver())
}

func TestMISConnectionService_OpenUnreachable(t *testing.T) {
	failing := func(context.Context, string, string, string, string, string) (*mis.Connection, error) {
		return nil, common.ConnectionError(constants.ErrCodeConnectionUnreachable, errors.New("dial tcp: refused"))
	}
	svc, repo, reg := newMISService(t, failing)
	ctx := context.Background()

	conn := &models.MISConnection{Name: "sis", Driver: "pgsql", Host: "nowhere", Database: "sis", Enabled: true}
	require.NoError(t, repo.Save(ctx, conn))

	_, err := svc.Open(ctx, conn.ID)
	assert.Equal(t, constants.ErrCodeConnectionUnreachable, common.CodeOf(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ConnectFailures.WithLabelValues(constants.ErrCodeConnectionUnreachable)))
}

func TestMISConnectionService_Delete(t *testing.T) {
	svc, repo, _ := newMISService(t, nil)
	ctx := context.Background()

	conn := &models.MISConnection{Name: "sis", Driver: "mysql", Host: "db", Database: "sis"}
	require.NoError(t, repo.Save(ctx, conn))

	require.NoError(t, svc.Delete(ctx, conn.ID))
	assert.Equal(t, constants.ErrCodeConnectionNotFound, common.CodeOf(svc.Delete(ctx, conn.ID)))
}

// --- plugin admin ---

func newPluginAdmin(t *testing.T) *PluginAdminService {
	t.Helper()
	gdb := setupTestDB(t)
	return NewPluginAdminService(repositories.NewPlanRepository(gdb), repositories.NewSettingRepository(gdb))
}

func TestPluginAdminService_CreateAndToggle(t *testing.T) {
	svc := newPluginAdmin(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreatePluginRequest{Name: "my goals", Title: ""})
	var fe common.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "name")
	assert.Contains(t, fe, "title")

	p, err := svc.Create(ctx, &CreatePluginRequest{Name: "goals", Title: "Goals", Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Version)

	toggled, err := svc.Toggle(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)
	toggled, err = svc.Toggle(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Enabled)
	assert.Equal(t, "Goals", toggled.Title)

	_, err = svc.Toggle(ctx, 404)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestPluginAdminService_UpdateSettingsChecksColours(t *testing.T) {
	svc := newPluginAdmin(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, &CreatePluginRequest{Name: "goals", Title: "Goals"})
	require.NoError(t, err)

	_, err = svc.UpdateSettings(ctx, p.ID, map[string]string{"headercolour": "blue", "intro": "Hello"})
	var fe common.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe["headercolour"], "colour code")

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Settings, "nothing is written when a value fails")

	got, err = svc.UpdateSettings(ctx, p.ID, map[string]string{"headercolour": "#abc", "TextColor": "#a1b2c3", "intro": "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "#abc", got.Settings["headercolour"])
	assert.Equal(t, "Hello", got.Settings["intro"])

	got, err = svc.UpdateSettings(ctx, p.ID, map[string]string{"intro": "Bye"})
	require.NoError(t, err)
	assert.Equal(t, "Bye", got.Settings["intro"])
	assert.Equal(t, "#abc", got.Settings["headercolour"])
}

// --- role provisioning ---

func TestRoleProvisioningService_EnsureRolesIsIdempotent(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewRoleProvisioningService(gdb)
	ctx := context.Background()

	statuses, err := svc.EnsureRoles(ctx, config.DefaultRoles)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Created)
	assert.Equal(t, 3, statuses[0].Granted)
	assert.Contains(t, statuses[0].String(), "plp_tutor")
	assert.Contains(t, statuses[0].String(), "created")

	statuses, err = svc.EnsureRoles(ctx, config.DefaultRoles)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.False(t, s.Created)
		assert.Zero(t, s.Granted)
		assert.Contains(t, s.String(), "exists")
	}

	var roles, grants int64
	require.NoError(t, gdb.Model(&models.Role{}).Count(&roles).Error)
	require.NoError(t, gdb.Model(&models.RoleCapability{}).Count(&grants).Error)
	assert.Equal(t, int64(2), roles)
	assert.Equal(t, int64(6), grants)
}

// --- plan ---

type planFixture struct {
	svc     *PlanService
	store   *plan.Store
	plugin  *plan.Plugin
	single  plan.Section
	multi   plan.Section
	logSec  plan.Section
	disable func()
}

// assign gives a user a role in a context, using the provisioned roles.
func assign(t *testing.T, gdb *gorm.DB, userID int64, role constants.Role, tc host.TrustContext) {
	t.Helper()
	var r models.Role
	require.NoError(t, gdb.Where("shortname = ?", role).First(&r).Error)
	require.NoError(t, gdb.Create(&models.RoleAssignment{
		RoleID: r.ID, UserID: userID, ContextLevel: tc.Level, InstanceID: tc.InstanceID,
	}).Error)
}

func setupPlan(t *testing.T) *planFixture {
	t.Helper()
	gdb := setupTestDB(t)
	ctx := context.Background()

	_, err := NewRoleProvisioningService(gdb).EnsureRoles(ctx, config.DefaultRoles)
	require.NoError(t, err)
	assign(t, gdb, student.ID, constants.RoleStudent, host.UserContext(student.ID))
	assign(t, gdb, tutor.ID, constants.RoleTutor, host.SystemContext())

	store := plan.NewStore(gdb, fields.Deps{}, nil, nil)
	newSec := func(rec models.Section, fr ...models.Field) plan.Section {
		rec.Enabled = true
		rec.Location = constants.LocationCentre
		sec, err := store.NewSection(rec, fr, nil, nil)
		require.NoError(t, err)
		return sec
	}
	f := &planFixture{
		single: newSec(models.Section{Title: "About me", Type: "single"}, models.Field{Title: "Goal", Type: "text", Validation: "required"}),
		multi:  newSec(models.Section{Title: "Targets", Type: "multi"}, models.Field{Title: "Target", Type: "text"}),
		logSec: newSec(models.Section{Title: "Diary", Type: "incremental"}, models.Field{Title: "Entry", Type: "textarea"}),
	}
	f.plugin = plan.NewPlugin(models.Plugin{Name: "goals", Title: "Goals", Enabled: true}, nil,
		plan.NewPage(models.Page{Title: "Main", Enabled: true}, f.single, f.multi, f.logSec))
	require.NoError(t, store.SavePlugin(ctx, f.plugin))

	f.store = store
	f.svc = NewPlanService(store, fakeUsers{student.ID: student, tutor.ID: tutor, stranger.ID: stranger}, host.NewGormCapabilities(gdb))
	f.disable = func() {
		require.NoError(t, repositories.NewPlanRepository(gdb).SetPluginEnabled(ctx, f.plugin.Record.ID, false))
	}
	return f
}

func input(values map[string][]string) fields.Input {
	return fields.MapInput{Values: values}
}

func TestPlanService_RenderPlanByNameAndID(t *testing.T) {
	f := setupPlan(t)
	ctx := context.Background()

	view, err := f.svc.RenderPlan(ctx, tutor, "goals", student.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Sam Student", view.Subject.FullName)
	require.Len(t, view.Pages, 1)
	assert.Len(t, view.Pages[0].Sections, 3)

	byID, err := f.svc.RenderPlan(ctx, tutor, strconv.FormatInt(f.plugin.Record.ID, 10), student.ID, "")
	require.NoError(t, err)
	assert.Equal(t, view.ID, byID.ID)

	_, err = f.svc.RenderPlan(ctx, tutor, "goals", 999, "")
	assert.True(t, common.IsKind(err, common.KindNotFound))

	_, err = f.svc.RenderPlan(ctx, stranger, "goals", student.ID, "")
	assert.True(t, common.IsKind(err, common.KindPermission))

	f.disable()
	_, err = f.svc.RenderPlan(ctx, tutor, "goals", student.ID, "")
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestPlanService_SubmitSingleSection(t *testing.T) {
	f := setupPlan(t)
	ctx := context.Background()
	name := f.single.Fields()[0].InputName()

	res, err := f.svc.Submit(ctx, student, f.single.Record().ID, student.ID, 0, input(map[string][]string{name: {"Pass maths"}}))
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSaved, res.Status)

	res, err = f.svc.Submit(ctx, student, f.single.Record().ID, student.ID, 0, input(map[string][]string{name: {""}}))
	require.NoError(t, err)
	assert.Equal(t, constants.StatusPartiallySaved, res.Status)
	assert.Contains(t, res.Errors, name)

	view, err := f.svc.RenderPlan(ctx, tutor, "goals", student.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Pass maths", view.Pages[0].Sections[0].Fields[0]["value"])

	_, err = f.svc.Submit(ctx, stranger, f.single.Record().ID, student.ID, 0, input(map[string][]string{name: {"x"}}))
	assert.True(t, common.IsKind(err, common.KindPermission))

	_, err = f.svc.Submit(ctx, student, 999, student.ID, 0, input(nil))
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestPlanService_ItemsAndDelete(t *testing.T) {
	f := setupPlan(t)
	ctx := context.Background()
	multiID := f.multi.Record().ID
	name := f.multi.Fields()[0].InputName()

	first, err := f.svc.Submit(ctx, tutor, multiID, student.ID, 0, input(map[string][]string{name: {"Read a book"}}))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, tutor, multiID, student.ID, 0, input(map[string][]string{name: {"Write an essay"}}))
	require.NoError(t, err)

	v, err := f.svc.Items(ctx, student, multiID, student.ID)
	require.NoError(t, err)
	assert.Len(t, v.Items, 2)

	require.NoError(t, f.svc.DeleteItem(ctx, tutor, multiID, student.ID, first.ItemID))
	v, err = f.svc.Items(ctx, student, multiID, student.ID)
	require.NoError(t, err)
	assert.Len(t, v.Items, 1)

	logID := f.logSec.Record().ID
	entry, err := f.svc.Submit(ctx, student, logID, student.ID, 0, input(map[string][]string{f.logSec.Fields()[0].InputName(): {"Day one"}}))
	require.NoError(t, err)
	err = f.svc.DeleteItem(ctx, student, logID, student.ID, entry.ItemID)
	assert.True(t, common.IsKind(err, common.KindValidation))

	_, err = f.svc.Items(ctx, student, f.single.Record().ID, student.ID)
	assert.True(t, common.IsKind(err, common.KindValidation))
}
