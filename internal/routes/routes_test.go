package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"infinite-experiment/plp/internal/api"
	"infinite-experiment/plp/internal/auth"
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
	"infinite-experiment/plp/internal/services"
)

var (
	student  = &models.User{ID: 1, Username: "student", FirstName: "Sam", LastName: "Student"}
	tutor    = &models.User{ID: 2, Username: "tutor"}
	admin    = &models.User{ID: 3, Username: "admin"}
	stranger = &models.User{ID: 4, Username: "stranger"}
)

type fakeUsers map[int64]*models.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) { return f[id], nil }

type testServer struct {
	handler http.Handler
	tokens  *auth.TokenService
	single  plan.Section
	multi   plan.Section
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))

	presets := append([]config.RolePreset{}, config.DefaultRoles...)
	presets = append(presets, config.RolePreset{ShortName: "manager", Name: "Manager", Capabilities: []string{constants.CapManage}})
	_, err = services.NewRoleProvisioningService(gdb).EnsureRoles(ctx, presets)
	require.NoError(t, err)
	assign := func(userID int64, role constants.Role, tc host.TrustContext) {
		var r models.Role
		require.NoError(t, gdb.Where("shortname = ?", role).First(&r).Error)
		require.NoError(t, gdb.Create(&models.RoleAssignment{RoleID: r.ID, UserID: userID, ContextLevel: tc.Level, InstanceID: tc.InstanceID}).Error)
	}
	assign(student.ID, constants.RoleStudent, host.UserContext(student.ID))
	assign(tutor.ID, constants.RoleTutor, host.SystemContext())
	assign(admin.ID, constants.RoleManager, host.SystemContext())

	store := plan.NewStore(gdb, fields.Deps{}, nil, nil)
	newSec := func(rec models.Section, fr ...models.Field) plan.Section {
		rec.Enabled = true
		sec, err := store.NewSection(rec, fr, nil, nil)
		require.NoError(t, err)
		return sec
	}
	single := newSec(models.Section{Title: "About me", Type: "single", Location: constants.LocationLeft},
		models.Field{Title: "Goal", Type: "text", Validation: "required"},
		models.Field{Title: "Interests", Type: "checkbox", Options: `{"options":{"a":"Art","m":"Music"}}`})
	multi := newSec(models.Section{Title: "Targets", Type: "multi", Location: constants.LocationCentre},
		models.Field{Title: "Target", Type: "text"})
	p := plan.NewPlugin(models.Plugin{Name: "goals", Title: "Goals", Enabled: true}, nil,
		plan.NewPage(models.Page{Title: "Main", Enabled: true}, single, multi))
	require.NoError(t, store.SavePlugin(ctx, p))

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	cfg.Auth.JWTSecret = "s3cret"
	cfg.RateLimit.RPS = 1000
	cfg.RateLimit.Burst = 1000

	reg := prometheus.NewRegistry()
	metricsReg := metrics.NewMetricsRegistry(reg)
	users := fakeUsers{student.ID: student, tutor.ID: tutor, admin.ID: admin, stranger.ID: stranger}
	caps := host.NewGormCapabilities(gdb)
	connect := func(context.Context, string, string, string, string, string) (*mis.Connection, error) {
		x, err := sqlx.Open("sqlite3", ":memory:")
		if err != nil {
			return nil, err
		}
		return mis.Wrap(x, mis.PgSQL), nil
	}

	repos := &api.Repositories{
		Plans:    repositories.NewPlanRepository(gdb),
		Settings: repositories.NewSettingRepository(gdb),
		MIS:      repositories.NewMISConnectionRepo(gdb),
	}
	deps := &api.Dependencies{
		Repo: repos,
		Services: &api.Services{
			Plan:    services.NewPlanService(store, users, caps),
			Plugins: services.NewPluginAdminService(repos.Plans, repos.Settings),
			MIS:     services.NewMISConnectionService(repos.MIS, connect, metricsReg),
		},
		Users:    users,
		Caps:     caps,
		Renderer: host.NewTemplateRenderer(),
		Metrics:  metricsReg,
		UpSince:  time.Now(),
	}

	return &testServer{
		handler: RegisterRoutes(cfg, deps, reg),
		tokens:  auth.NewTokenService([]byte(cfg.Auth.JWTSecret)),
		single:  single,
		multi:   multi,
	}
}

func (s *testServer) do(t *testing.T, actor *models.User, method, path string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if actor != nil {
		token, err := s.tokens.Issue(actor.ID, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, actor *models.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	return s.do(t, actor, method, path, bytes.NewReader(buf), http.Header{"Content-Type": {"application/json"}})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) common.APIResponse {
	t.Helper()
	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, nil, http.MethodGet, "/healthCheck", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = s.do(t, nil, http.MethodGet, "/metrics", nil, http.Header{"Accept": {"text/plain"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "plp_http_requests_total")
}

func TestAPI_RequiresToken(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, nil, http.MethodGet, "/api/v1/plugins/goals/users/1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, constants.ErrCodeUnauthorized, decode(t, rec).Code)
}

func TestAPI_RenderPlan(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, tutor, http.MethodGet, "/api/v1/plugins/goals/users/1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec).Data.(map[string]any)
	assert.Equal(t, "Goals", data["title"])
	pages := data["pages"].([]any)
	require.Len(t, pages, 1)
	assert.Len(t, pages[0].(map[string]any)["sections"], 2)

	rec = s.do(t, tutor, http.MethodGet, "/api/v1/plugins/goals/users/1?location=left", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sections := decode(t, rec).Data.(map[string]any)["pages"].([]any)[0].(map[string]any)["sections"].([]any)
	assert.Len(t, sections, 1)

	rec = s.do(t, tutor, http.MethodGet, "/api/v1/plugins/goals/users/1?location=top", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, tutor, http.MethodGet, "/api/v1/plugins/nothing/users/1", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_DeniedAccessFollowsResponseMode(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, stranger, http.MethodGet, "/api/v1/plugins/goals/users/1", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, constants.MsgAccessDenied, resp.Message)

	rec = s.do(t, stranger, http.MethodGet, "/api/v1/plugins/goals/users/1", nil, http.Header{"Accept": {"text/html"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), constants.MsgAccessDenied)
}

func TestAPI_SubmitForm(t *testing.T) {
	s := setupServer(t)
	goal := s.single.Fields()[0].InputName()
	interests := s.single.Fields()[1].InputName()
	path := fmt.Sprintf("/api/v1/sections/%d/users/1", s.single.Record().ID)

	form := url.Values{goal: {"Learn Go"}, interests + "[]": {"m", "a"}}
	rec := s.do(t, student, http.MethodPost, path, strings.NewReader(form.Encode()),
		http.Header{"Content-Type": {"application/x-www-form-urlencoded"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, constants.StatusSaved, decode(t, rec).Message)

	rec = s.do(t, student, http.MethodPost, path, strings.NewReader(url.Values{goal: {""}}.Encode()),
		http.Header{"Content-Type": {"application/x-www-form-urlencoded"}})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, constants.StatusPartiallySaved, resp.Message)
	assert.Contains(t, resp.Data.(map[string]any)["errors"], goal)

	rec = s.do(t, stranger, http.MethodPost, path, strings.NewReader(form.Encode()),
		http.Header{"Content-Type": {"application/x-www-form-urlencoded"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_MultipartItemsAndDelete(t *testing.T) {
	s := setupServer(t)
	target := s.multi.Fields()[0].InputName()
	base := fmt.Sprintf("/api/v1/sections/%d/users/1", s.multi.Record().ID)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField(target, "Finish the course"))
	require.NoError(t, mw.Close())

	rec := s.do(t, tutor, http.MethodPost, base, body, http.Header{"Content-Type": {mw.FormDataContentType()}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	itemID := int64(decode(t, rec).Data.(map[string]any)["item_id"].(float64))
	assert.NotZero(t, itemID)

	update := url.Values{target: {"Finish two courses"}, "item_id": {fmt.Sprint(itemID)}}
	rec = s.do(t, tutor, http.MethodPost, base, strings.NewReader(update.Encode()),
		http.Header{"Content-Type": {"application/x-www-form-urlencoded"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, student, http.MethodGet, base+"/items", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec).Data.(map[string]any)["items"].([]any)
	require.Len(t, items, 1)
	value := items[0].(map[string]any)["fields"].([]any)[0].(map[string]any)["value"]
	assert.Equal(t, "Finish two courses", value)

	rec = s.do(t, tutor, http.MethodDelete, fmt.Sprintf("%s/items/%d", base, itemID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, tutor, http.MethodDelete, fmt.Sprintf("%s/items/%d", base, itemID), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_AdminPlugins(t *testing.T) {
	s := setupServer(t)

	rec := s.do(t, tutor, http.MethodGet, "/api/v1/admin/plugins", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.doJSON(t, admin, http.MethodPost, "/api/v1/admin/plugins", map[string]any{"name": "", "title": "Reviews"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Errors, "name")

	rec = s.doJSON(t, admin, http.MethodPost, "/api/v1/admin/plugins", map[string]any{"name": "reviews", "title": "Reviews", "enabled": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int64(decode(t, rec).Data.(map[string]any)["id"].(float64))

	rec = s.do(t, admin, http.MethodPost, fmt.Sprintf("/api/v1/admin/plugins/%d/toggle", id), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec).Data.(map[string]any)["enabled"])

	rec = s.doJSON(t, admin, http.MethodPut, fmt.Sprintf("/api/v1/admin/plugins/%d/settings", id), map[string]string{"bgcolour": "navy"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Errors, "bgcolour")

	rec = s.doJSON(t, admin, http.MethodPut, fmt.Sprintf("/api/v1/admin/plugins/%d/settings", id), map[string]string{"bgcolour": "#000080"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, admin, http.MethodGet, "/api/v1/admin/plugins", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec).Data.([]any), 2)
}

func TestAPI_AdminMISConnections(t *testing.T) {
	s := setupServer(t)

	rec := s.doJSON(t, admin, http.MethodPost, "/api/v1/admin/mis", map[string]any{"name": "sis", "driver": "db2", "host": "db", "database": "sis"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Errors, "driver")

	rec = s.doJSON(t, admin, http.MethodPost, "/api/v1/admin/mis", map[string]any{"name": "sis", "driver": "pgsql", "host": "db", "database": "sis", "password": "hidden"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "hidden")
	id := int64(decode(t, rec).Data.(map[string]any)["id"].(float64))

	rec = s.do(t, admin, http.MethodPost, fmt.Sprintf("/api/v1/admin/mis/%d/test", id), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, admin, http.MethodPost, fmt.Sprintf("/api/v1/admin/mis/%d/toggle", id), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec).Data.(map[string]any)["enabled"])

	rec = s.do(t, admin, http.MethodPost, "/api/v1/admin/mis/999/toggle", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, constants.ErrCodeConnectionNotFound, decode(t, rec).Code)

	rec = s.do(t, admin, http.MethodDelete, fmt.Sprintf("/api/v1/admin/mis/%d", id), nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
