package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"infinite-experiment/plp/internal/auth"
	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/fields"
	models "infinite-experiment/plp/internal/models/gorm"
	"infinite-experiment/plp/internal/services"
)

const maxUploadMemory = 32 << 20

type Handlers struct {
	deps *Dependencies
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{deps: deps}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, initTime time.Time, err error) {
	respondError(w, r, initTime, h.deps.Renderer, err)
}

// actor returns the acting user set by AuthMiddleware.
func (h *Handlers) actor(w http.ResponseWriter, r *http.Request, initTime time.Time) *models.User {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		common.RespondError(w, initTime, constants.ErrCodeUnauthorized, "Unauthorized: missing claims", http.StatusUnauthorized, nil)
	}
	return actor
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ValidationError("invalid %s %q", name, raw)
	}
	return id, nil
}

func validLocation(loc string) bool {
	switch loc {
	case "", constants.LocationLeft, constants.LocationCentre, constants.LocationRight:
		return true
	}
	return false
}

// RenderPlanHandler handles GET /api/v1/plugins/{plugin}/users/{userID}
func (h *Handlers) RenderPlanHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		actor := h.actor(w, r, initTime)
		if actor == nil {
			return
		}

		userID, err := idParam(r, "userID")
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		location := r.URL.Query().Get("location")
		if !validLocation(location) {
			h.fail(w, r, initTime, common.ValidationError("unknown location %q", location))
			return
		}

		view, err := h.deps.Services.Plan.RenderPlan(r.Context(), actor, chi.URLParam(r, "plugin"), userID, location)
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Plan loaded", view)
	}
}

// submittedInput reads an urlencoded or multipart body.
func submittedInput(r *http.Request) (fields.FormInput, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return fields.FormInput{}, common.ValidationError("invalid multipart body: %v", err)
		}
		return fields.FormInput{Values: r.MultipartForm.Value, Files: r.MultipartForm.File}, nil
	}
	if err := r.ParseForm(); err != nil {
		return fields.FormInput{}, common.ValidationError("invalid form body: %v", err)
	}
	return fields.FormInput{Values: r.PostForm}, nil
}

// SubmitSectionHandler handles POST /api/v1/sections/{sectionID}/users/{userID}
func (h *Handlers) SubmitSectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		actor := h.actor(w, r, initTime)
		if actor == nil {
			return
		}

		sectionID, err := idParam(r, "sectionID")
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		userID, err := idParam(r, "userID")
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}

		input, err := submittedInput(r)
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		var itemID int64
		if raw, ok := input.Get("item_id"); ok && raw != "" {
			if itemID, err = strconv.ParseInt(raw, 10, 64); err != nil {
				h.fail(w, r, initTime, common.ValidationError("invalid item_id %q", raw))
				return
			}
		}

		res, err := h.deps.Services.Plan.Submit(r.Context(), actor, sectionID, userID, itemID, input)
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, res.Status, res)
	}
}

// ItemsHandler handles GET /api/v1/sections/{sectionID}/users/{userID}/items
func (h *Handlers) ItemsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		actor := h.actor(w, r, initTime)
		if actor == nil {
			return
		}

		sectionID, err := idParam(r, "sectionID")
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		userID, err := idParam(r, "userID")
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}

		view, err := h.deps.Services.Plan.Items(r.Context(), actor, sectionID, userID)
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Items loaded", view)
	}
}

// DeleteItemHandler handles DELETE /api/v1/sections/{sectionID}/users/{userID}/items/{itemID}
func (h *Handlers) DeleteItemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		actor := h.actor(w, r, initTime)
		if actor == nil {
			return
		}

		ids := make([]int64, 0, 3)
		for _, name := range []string{"sectionID", "userID", "itemID"} {
			id, err := idParam(r, name)
			if err != nil {
				h.fail(w, r, initTime, err)
				return
			}
			ids = append(ids, id)
		}

		if err := h.deps.Services.Plan.DeleteItem(r.Context(), actor, ids[0], ids[1], ids[2]); err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Item deleted", nil)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.ValidationError("invalid request body: %v", err)
	}
	return nil
}

// ListPluginsHandler handles GET /api/v1/admin/plugins
func (h *Handlers) ListPluginsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		plugins, err := h.deps.Services.Plugins.List(r.Context())
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Plugins loaded", plugins)
	}
}

// CreatePluginHandler handles POST /api/v1/admin/plugins
func (h *Handlers) CreatePluginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		var req services.CreatePluginRequest
		if err := decodeJSON(r, &req); err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		plugin, err := h.deps.Services.Plugins.Create(r.Context(), &req)
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Plugin created", plugin, http.StatusCreated)
	}
}

// TogglePluginHandler handles POST /api/v1/admin/plugins/{id}/toggle
func (h *Handlers) TogglePluginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		id, err := idParam(r, "id")
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		plugin, err := h.deps.Services.Plugins.Toggle(r.Context(), id)
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Plugin toggled", plugin)
	}
}

// UpdatePluginSettingsHandler handles PUT /api/v1/admin/plugins/{id}/settings
func (h *Handlers) UpdatePluginSettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		id, err := idParam(r, "id")
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		var settings map[string]string
		if err := decodeJSON(r, &settings); err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		plugin, err := h.deps.Services.Plugins.UpdateSettings(r.Context(), id, settings)
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Settings saved", plugin)
	}
}

// ListMISConnectionsHandler handles GET /api/v1/admin/mis
func (h *Handlers) ListMISConnectionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		conns, err := h.deps.Services.MIS.List(r.Context())
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connections loaded", conns)
	}
}

// CreateMISConnectionHandler handles POST /api/v1/admin/mis
func (h *Handlers) CreateMISConnectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		var req services.SaveMISConnectionRequest
		if err := decodeJSON(r, &req); err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		conn, err := h.deps.Services.MIS.Create(r.Context(), &req)
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection created", conn, http.StatusCreated)
	}
}

// ToggleMISConnectionHandler handles POST /api/v1/admin/mis/{id}/toggle
func (h *Handlers) ToggleMISConnectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		id, err := idParam(r, "id")
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		conn, err := h.deps.Services.MIS.Toggle(r.Context(), id)
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection toggled", conn)
	}
}

// TestMISConnectionHandler handles POST /api/v1/admin/mis/{id}/test
func (h *Handlers) TestMISConnectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		id, err := idParam(r, "id")
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		if err := h.deps.Services.MIS.Test(r.Context(), id); err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection succeeded", nil)
	}
}

// DeleteMISConnectionHandler handles DELETE /api/v1/admin/mis/{id}
func (h *Handlers) DeleteMISConnectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		id, err := idParam(r, "id")
		if err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		if err := h.deps.Services.MIS.Delete(r.Context(), id); err != nil {
			h.fail(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Connection deleted", nil)
	}
}
