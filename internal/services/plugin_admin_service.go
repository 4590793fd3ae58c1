package services

import (
	"context"
	"strings"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/db/repositories"
	"infinite-experiment/plp/internal/logging"
	models "infinite-experiment/plp/internal/models/gorm"
)

// PluginAdminService covers the plugin management screens: listing,
// creating, enabling and configuring plugins.
type PluginAdminService struct {
	plans    *repositories.PlanRepository
	settings *repositories.SettingRepository
}

func NewPluginAdminService(plans *repositories.PlanRepository, settings *repositories.SettingRepository) *PluginAdminService {
	return &PluginAdminService{plans: plans, settings: settings}
}

type CreatePluginRequest struct {
	Name    string `json:"name" validate:"required,notblank,max=100,excludesall= /"`
	Title   string `json:"title" validate:"required,notblank,max=255"`
	Enabled bool   `json:"enabled"`
	Custom  bool   `json:"custom"`
}

type PluginResponse struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Title    string            `json:"title"`
	Enabled  bool              `json:"enabled"`
	Custom   bool              `json:"custom"`
	Version  int64             `json:"version"`
	Settings map[string]string `json:"settings,omitempty"`
}

func toPluginResponse(p *models.Plugin, settings map[string]string) PluginResponse {
	return PluginResponse{
		ID:       p.ID,
		Name:     p.Name,
		Title:    p.Title,
		Enabled:  p.Enabled,
		Custom:   p.Custom,
		Version:  p.Version,
		Settings: settings,
	}
}

func (s *PluginAdminService) List(ctx context.Context) ([]PluginResponse, error) {
	plugins, err := s.plans.ListPlugins(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PluginResponse, 0, len(plugins))
	for i := range plugins {
		out = append(out, toPluginResponse(&plugins[i], nil))
	}
	return out, nil
}

func (s *PluginAdminService) Get(ctx context.Context, id int64) (*PluginResponse, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.GetAll(ctx, constants.RefPlugin, id)
	if err != nil {
		return nil, err
	}
	resp := toPluginResponse(p, settings)
	return &resp, nil
}

func (s *PluginAdminService) Create(ctx context.Context, req *CreatePluginRequest) (*PluginResponse, error) {
	if errs := common.ValidateStruct(req); errs != nil {
		return nil, errs
	}

	existing, err := s.plans.GetPluginByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.FieldErrors{"name": "a plugin with this name already exists"}
	}

	p := &models.Plugin{Name: req.Name, Title: strings.TrimSpace(req.Title), Enabled: req.Enabled, Custom: req.Custom, Version: 1}
	if err := s.plans.Plugins.Save(ctx, p); err != nil {
		return nil, err
	}
	logging.Info("Plugin created", "plugin_id", p.ID, "name", p.Name)

	resp := toPluginResponse(p, nil)
	return &resp, nil
}

// Toggle flips the enabled flag; the plugin's pages and settings are untouched.
func (s *PluginAdminService) Toggle(ctx context.Context, id int64) (*PluginResponse, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Enabled = !p.Enabled
	if err := s.plans.SetPluginEnabled(ctx, id, p.Enabled); err != nil {
		return nil, err
	}
	logging.Info("Plugin toggled", "plugin_id", id, "enabled", p.Enabled)

	resp := toPluginResponse(p, nil)
	return &resp, nil
}

// UpdateSettings upserts plugin settings. Names ending in "colour" or "color"
// must hold a hex colour code; nothing is written when any value fails.
func (s *PluginAdminService) UpdateSettings(ctx context.Context, id int64, settings map[string]string) (*PluginResponse, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	errs := common.FieldErrors{}
	for name, value := range settings {
		if strings.TrimSpace(name) == "" {
			errs[name] = "setting name is required"
			continue
		}
		if isColourSetting(name) {
			if msg := common.ValidateValue(name, value, "colourcode"); msg != "" {
				errs[name] = msg
			}
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if err := s.settings.SetAll(ctx, constants.RefPlugin, id, settings, common.SortedKeys(settings)); err != nil {
		logging.Error("Failed to save plugin settings", "plugin_id", id, "error", err)
		return nil, err
	}
	return s.Get(ctx, id)
}

func isColourSetting(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, "colour") || strings.HasSuffix(n, "color")
}

func (s *PluginAdminService) load(ctx context.Context, id int64) (*models.Plugin, error) {
	p, err := s.plans.Plugins.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, common.NotFoundError("plugin %d not found", id)
	}
	return p, nil
}
