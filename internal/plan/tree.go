// Package plan holds the plugin → page → section → field tree of a learning
// plan and the render and save flows over it.
package plan

import (
	"context"
	"time"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/fields"
	models "infinite-experiment/plp/internal/models/gorm"
	"infinite-experiment/plp/internal/permissions"
	"infinite-experiment/plp/internal/query"
)

// SectionType is the stored type tag of a section.
type SectionType string

const (
	Single      SectionType = "single"
	Multi       SectionType = "multi"
	Incremental SectionType = "incremental"
	DB          SectionType = "db"
)

// Section is one of the four section variants.
type Section interface {
	HasSettings
	Record() *models.Section
	Type() SectionType
	Editable() bool
	Fields() []*fields.Field
	Permissions() permissions.RoleMatrix
	Confidentiality() permissions.Confidentiality
	// Render returns nil when the acting user may not see the section.
	Render(ctx context.Context, rc *RequestContext) (*SectionView, error)
	Submit(ctx context.Context, rc *RequestContext) (*SubmitResult, error)
}

var sectionTypes = map[SectionType]func(b *sectionBase) Section{
	Single:      func(b *sectionBase) Section { return &SingleSection{sectionBase: b} },
	Multi:       func(b *sectionBase) Section { return &MultiSection{sectionBase: b} },
	Incremental: func(b *sectionBase) Section { return &IncrementalSection{MultiSection{sectionBase: b}} },
	DB:          func(b *sectionBase) Section { return &DBSection{sectionBase: b} },
}

type Plugin struct {
	Record   models.Plugin
	Pages    []*Page
	settings *Settings
	perms    permissions.RoleMatrix
}

func (p *Plugin) Settings() *Settings { return p.settings }

func (p *Plugin) SettingsOwner() (string, int64) { return constants.RefPlugin, p.Record.ID }

func (p *Plugin) Permissions() permissions.RoleMatrix { return p.perms }

type Page struct {
	Record   models.Page
	Sections []Section
	perms    permissions.RoleMatrix
}

func (p *Page) Permissions() permissions.RoleMatrix { return p.perms }

// Item is one entry of a multi or incremental section.
type Item struct {
	models.Item
}

func (i Item) SubjectUserID() int64 { return i.UserID }

// bound fails unless the item belongs to a section and a user.
func (i Item) bound() error {
	if i.SectionID == 0 || i.UserID == 0 {
		return &common.AppError{
			Kind:    common.KindValidation,
			Code:    constants.ErrCodeItemWithoutUser,
			Message: constants.GetErrorMessage(constants.ErrCodeItemWithoutUser),
		}
	}
	return nil
}

// SubmitResult reports a best-effort save: Errors maps input names to messages.
type SubmitResult struct {
	Status string            `json:"status"`
	ItemID int64             `json:"item_id,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

type SubjectView struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullname"`
}

type PluginView struct {
	ID      int64             `json:"id"`
	Name    string            `json:"name"`
	Title   string            `json:"title"`
	Subject SubjectView       `json:"subject"`
	Config  map[string]string `json:"settings,omitempty"`
	Pages   []PageView        `json:"pages"`
}

type PageView struct {
	ID       int64          `json:"id"`
	Title    string         `json:"title"`
	Sections []*SectionView `json:"sections"`
}

type SectionView struct {
	ID              int64                       `json:"id"`
	Title           string                      `json:"title"`
	Type            SectionType                 `json:"type"`
	Location        string                      `json:"location"`
	Confidentiality permissions.Confidentiality `json:"confidentiality"`
	Editable        bool                        `json:"editable"`
	Display         string                      `json:"display"`
	Fields          []fields.RenderData         `json:"fields,omitempty"`
	Headers         []string                    `json:"headers,omitempty"`
	Items           []ItemView                  `json:"items,omitempty"`
	Query           *query.Result               `json:"query,omitempty"`
}

type ItemView struct {
	ID        int64               `json:"id"`
	CreatedBy int64               `json:"created_by"`
	CreatedAt time.Time           `json:"created_at"`
	Fields    []fields.RenderData `json:"fields"`
}

// Render builds the plan of rc.Subject as the acting user sees it.
func (p *Plugin) Render(ctx context.Context, rc *RequestContext) (*PluginView, error) {
	if err := rc.Resolver.RequireView(ctx, rc.SubjectID()); err != nil {
		return nil, err
	}

	view := &PluginView{
		ID:      p.Record.ID,
		Name:    p.Record.Name,
		Title:   p.Record.Title,
		Subject: SubjectView{ID: rc.Subject.ID, FullName: rc.Subject.FullName()},
		Config:  p.settings.Map(),
		Pages:   make([]PageView, 0, len(p.Pages)),
	}

	for _, page := range p.Pages {
		allowed, err := roleAllows(ctx, rc, page.perms, constants.ActionView)
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}

		pv := PageView{ID: page.Record.ID, Title: page.Record.Title, Sections: []*SectionView{}}
		for _, sec := range page.Sections {
			sv, err := sec.Render(ctx, rc)
			if err != nil {
				return nil, err
			}
			if sv != nil {
				pv.Sections = append(pv.Sections, sv)
			}
		}
		view.Pages = append(view.Pages, pv)
	}
	return view, nil
}

// roleAllows checks a role matrix; an object without grants restricts nobody.
func roleAllows(ctx context.Context, rc *RequestContext, m permissions.RoleMatrix, action string) (bool, error) {
	if len(m) == 0 {
		return true, nil
	}
	roles, err := rc.Resolver.Roles(ctx, rc.SubjectID())
	if err != nil {
		return false, err
	}
	return m.CanRolesDo(action, roles...), nil
}

// NewPlugin wraps a plugin record that is not stored yet.
func NewPlugin(rec models.Plugin, settings *Settings, pages ...*Page) *Plugin {
	if settings == nil {
		settings = &Settings{}
	}
	return &Plugin{Record: rec, settings: settings, Pages: pages}
}

func NewPage(rec models.Page, sections ...Section) *Page {
	return &Page{Record: rec, Sections: sections}
}
