package plan

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/db/repositories"
	"infinite-experiment/plp/internal/fields"
	"infinite-experiment/plp/internal/logging"
	"infinite-experiment/plp/internal/metrics"
	models "infinite-experiment/plp/internal/models/gorm"
	"infinite-experiment/plp/internal/permissions"
	"infinite-experiment/plp/internal/query"
)

// QueryRunner runs the query of a db section for a subject.
type QueryRunner interface {
	Run(ctx context.Context, s query.Settings, subject *models.User) (*query.Result, error)
}

// Store loads the tree in one pass and saves it back.
type Store struct {
	plans     *repositories.PlanRepository
	values    *repositories.ValueRepository
	settings  *repositories.SettingRepository
	perms     *repositories.PermissionRepository
	fieldDeps fields.Deps
	queries   QueryRunner
	metrics   *metrics.MetricsRegistry
}

func NewStore(db *gorm.DB, fieldDeps fields.Deps, queries QueryRunner, reg *metrics.MetricsRegistry) *Store {
	return &Store{
		plans:     repositories.NewPlanRepository(db),
		values:    repositories.NewValueRepository(db),
		settings:  repositories.NewSettingRepository(db),
		perms:     repositories.NewPermissionRepository(db),
		fieldDeps: fieldDeps,
		queries:   queries,
		metrics:   reg,
	}
}

// LoadPlugin loads a plugin with its enabled pages and their enabled sections
// at location ("" for every location).
func (s *Store) LoadPlugin(ctx context.Context, id int64, location string) (*Plugin, error) {
	rec, err := s.plans.Plugins.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.NotFoundError("plugin %d not found", id)
	}
	return s.loadTree(ctx, *rec, location)
}

func (s *Store) LoadPluginByName(ctx context.Context, name, location string) (*Plugin, error) {
	rec, err := s.plans.GetPluginByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.NotFoundError("plugin %q not found", name)
	}
	return s.loadTree(ctx, *rec, location)
}

func (s *Store) loadTree(ctx context.Context, rec models.Plugin, location string) (*Plugin, error) {
	p := &Plugin{Record: rec}
	var err error
	if p.settings, err = s.loadSettings(ctx, constants.RefPlugin, rec.ID); err != nil {
		return nil, err
	}
	if p.perms, err = permissions.LoadRoleMatrix(ctx, s.perms, constants.RefPlugin, rec.ID); err != nil {
		return nil, err
	}

	pages, err := s.plans.EnabledPages(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	for _, pageRec := range pages {
		page := &Page{Record: pageRec}
		if page.perms, err = permissions.LoadRoleMatrix(ctx, s.perms, constants.RefPage, pageRec.ID); err != nil {
			return nil, err
		}

		sections, err := s.plans.EnabledSections(ctx, pageRec.ID, location)
		if err != nil {
			return nil, err
		}
		for _, secRec := range sections {
			sec, err := s.loadSection(ctx, secRec)
			if err != nil {
				return nil, err
			}
			page.Sections = append(page.Sections, sec)
		}
		p.Pages = append(p.Pages, page)
	}
	return p, nil
}

// LoadSection loads one section with its fields, settings and grants.
func (s *Store) LoadSection(ctx context.Context, id int64) (Section, error) {
	rec, err := s.plans.Sections.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.NotFoundError("section %d not found", id)
	}
	return s.loadSection(ctx, *rec)
}

func (s *Store) loadSection(ctx context.Context, rec models.Section) (Section, error) {
	fieldRecs, err := s.plans.SectionFields(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	settings, err := s.loadSettings(ctx, constants.RefSection, rec.ID)
	if err != nil {
		return nil, err
	}
	perms, err := permissions.LoadRoleMatrix(ctx, s.perms, constants.RefSection, rec.ID)
	if err != nil {
		return nil, err
	}
	return s.NewSection(rec, fieldRecs, settings, perms)
}

// NewSection resolves a section record to its variant. Unknown type tags and
// unknown field types are configuration errors.
func (s *Store) NewSection(rec models.Section, fieldRecs []models.Field, settings *Settings, perms permissions.RoleMatrix) (Section, error) {
	ctor, ok := sectionTypes[SectionType(rec.Type)]
	if !ok {
		return nil, common.ConfigError(constants.ErrCodeUnknownSectionType, "section %d has unknown type %q", rec.ID, rec.Type)
	}
	conf, err := permissions.ParseConfidentiality(rec.Confidentiality)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &Settings{}
	}

	b := &sectionBase{rec: rec, conf: conf, settings: settings, perms: perms, store: s}
	for _, fr := range fieldRecs {
		f, err := fields.New(fr, s.fieldDeps)
		if err != nil {
			return nil, err
		}
		b.fields = append(b.fields, f)
	}
	return ctor(b), nil
}

func (s *Store) loadSettings(ctx context.Context, ownerType string, ownerID int64) (*Settings, error) {
	rows, err := s.settings.List(ctx, ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	return NewSettings(rows), nil
}

// SaveSettings writes every setting of owner in order.
func (s *Store) SaveSettings(ctx context.Context, owner HasSettings) error {
	ownerType, ownerID := owner.SettingsOwner()
	settings := owner.Settings()
	if settings == nil {
		return nil
	}
	return s.settings.SetAll(ctx, ownerType, ownerID, settings.Map(), settings.Names())
}

// SavePlugin saves the plugin, its settings and then each page in order.
// There is no transaction: a failing page leaves earlier pages saved.
func (s *Store) SavePlugin(ctx context.Context, p *Plugin) error {
	if err := s.plans.Plugins.Save(ctx, &p.Record); err != nil {
		return err
	}
	if p.settings == nil {
		p.settings = &Settings{}
	}
	if err := s.SaveSettings(ctx, p); err != nil {
		return err
	}
	for i, page := range p.Pages {
		page.Record.PluginID = p.Record.ID
		if err := s.SavePage(ctx, page); err != nil {
			logging.Error("Plugin save stopped", "plugin_id", p.Record.ID, "page_index", i, "error", err.Error())
			return fmt.Errorf("failed to save page %d of plugin %s: %w", i, p.Record.Name, err)
		}
	}
	return nil
}

// SavePage saves the page and then each section in order.
func (s *Store) SavePage(ctx context.Context, page *Page) error {
	if err := s.plans.Pages.Save(ctx, &page.Record); err != nil {
		return err
	}
	for i, sec := range page.Sections {
		sec.Record().PageID = page.Record.ID
		if err := s.SaveSection(ctx, sec); err != nil {
			logging.Error("Page save stopped", "page_id", page.Record.ID, "section_index", i, "error", err.Error())
			return fmt.Errorf("failed to save section %d of page %d: %w", i, page.Record.ID, err)
		}
	}
	return nil
}

// SaveSection saves the section, its settings and then each field in order.
func (s *Store) SaveSection(ctx context.Context, sec Section) error {
	rec := sec.Record()
	if rec.Confidentiality == "" {
		rec.Confidentiality = string(permissions.Public)
	}
	if err := s.plans.Sections.Save(ctx, rec); err != nil {
		return err
	}
	if err := s.SaveSettings(ctx, sec); err != nil {
		return err
	}
	for i, f := range sec.Fields() {
		f.Record.SectionID = rec.ID
		if err := s.plans.Fields.Save(ctx, &f.Record); err != nil {
			logging.Error("Section save stopped", "section_id", rec.ID, "field_index", i, "error", err.Error())
			return fmt.Errorf("failed to save field %d of section %d: %w", i, rec.ID, err)
		}
	}
	return nil
}
