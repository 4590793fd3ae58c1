package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	models "infinite-experiment/plp/internal/models/gorm"
)

// PlanRepository reads and writes the plugin → page → section → field tree.
type PlanRepository struct {
	db       *gorm.DB
	Plugins  *RecordStore[models.Plugin]
	Pages    *RecordStore[models.Page]
	Sections *RecordStore[models.Section]
	Fields   *RecordStore[models.Field]
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{
		db:       db,
		Plugins:  NewRecordStore[models.Plugin](db),
		Pages:    NewRecordStore[models.Page](db),
		Sections: NewRecordStore[models.Section](db),
		Fields:   NewRecordStore[models.Field](db),
	}
}

// GetPluginByName returns nil, nil when no plugin carries the name.
func (r *PlanRepository) GetPluginByName(ctx context.Context, name string) (*models.Plugin, error) {
	return r.Plugins.LoadBy(ctx, Filter{"name": name})
}

func (r *PlanRepository) ListPlugins(ctx context.Context) ([]models.Plugin, error) {
	return r.Plugins.All(ctx, nil, "name")
}

// EnabledPages returns the enabled pages of a plugin in display order.
func (r *PlanRepository) EnabledPages(ctx context.Context, pluginID int64) ([]models.Page, error) {
	return r.Pages.All(ctx, Filter{"plugin_id": pluginID, "enabled": true}, "sortorder", "id")
}

// EnabledSections returns the enabled sections of a page, optionally filtered by location.
func (r *PlanRepository) EnabledSections(ctx context.Context, pageID int64, location string) ([]models.Section, error) {
	filter := Filter{"page_id": pageID, "enabled": true}
	if location != "" {
		filter["location"] = location
	}
	return r.Sections.All(ctx, filter, "sortorder", "id")
}

func (r *PlanRepository) SectionFields(ctx context.Context, sectionID int64) ([]models.Field, error) {
	return r.Fields.All(ctx, Filter{"section_id": sectionID}, "sortorder", "id")
}

// SetPluginEnabled flips only the enabled column.
func (r *PlanRepository) SetPluginEnabled(ctx context.Context, pluginID int64, enabled bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Plugin{}).
		Where("id = ?", pluginID).
		Update("enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("failed to update plugin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("plugin %d not found", pluginID)
	}
	return nil
}
