package services

import (
	"context"
	"strconv"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/fields"
	"infinite-experiment/plp/internal/host"
	"infinite-experiment/plp/internal/logging"
	models "infinite-experiment/plp/internal/models/gorm"
	"infinite-experiment/plp/internal/permissions"
	"infinite-experiment/plp/internal/plan"
)

// PlanService answers the plan pages: rendering a subject's plan, saving a
// section and working with the items of a section.
type PlanService struct {
	store *plan.Store
	users host.Users
	caps  host.Capabilities
}

func NewPlanService(store *plan.Store, users host.Users, caps host.Capabilities) *PlanService {
	return &PlanService{store: store, users: users, caps: caps}
}

// requestContext resolves the subject and builds the per-request resolver.
func (s *PlanService) requestContext(ctx context.Context, actor *models.User, subjectID int64, input fields.Input) (*plan.RequestContext, error) {
	subject, err := s.users.GetUser(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, common.NotFoundError("%s: %d", constants.MsgUserNotFound, subjectID)
	}
	return &plan.RequestContext{
		Actor:    actor,
		Subject:  subject,
		Input:    input,
		Resolver: permissions.NewResolver(actor.ID, s.caps),
	}, nil
}

// RenderPlan renders the plugin named by pluginRef (numeric id or name) for
// the subject. A disabled plugin is reported as not found.
func (s *PlanService) RenderPlan(ctx context.Context, actor *models.User, pluginRef string, subjectID int64, location string) (*plan.PluginView, error) {
	rc, err := s.requestContext(ctx, actor, subjectID, nil)
	if err != nil {
		return nil, err
	}

	var p *plan.Plugin
	if id, convErr := strconv.ParseInt(pluginRef, 10, 64); convErr == nil {
		p, err = s.store.LoadPlugin(ctx, id, location)
	} else {
		p, err = s.store.LoadPluginByName(ctx, pluginRef, location)
	}
	if err != nil {
		return nil, err
	}
	if !p.Record.Enabled {
		return nil, common.NotFoundError("%s: %s", constants.MsgPluginNotFound, pluginRef)
	}

	view, err := p.Render(ctx, rc)
	if err != nil {
		return nil, err
	}
	logging.Debug("Plan rendered", "plugin_id", p.Record.ID, "actor_id", actor.ID, "subject_id", subjectID, "pages", len(view.Pages))
	return view, nil
}

func (s *PlanService) section(ctx context.Context, sectionID int64) (plan.Section, error) {
	sec, err := s.store.LoadSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if !sec.Record().Enabled {
		return nil, common.NotFoundError("%s: %d", constants.MsgSectionNotFound, sectionID)
	}
	return sec, nil
}

// Submit saves the submitted values of one section. itemID selects the item
// to update in a multi section; 0 creates one.
func (s *PlanService) Submit(ctx context.Context, actor *models.User, sectionID, subjectID, itemID int64, input fields.Input) (*plan.SubmitResult, error) {
	sec, err := s.section(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	rc, err := s.requestContext(ctx, actor, subjectID, input)
	if err != nil {
		return nil, err
	}
	if err := rc.Resolver.RequireView(ctx, subjectID); err != nil {
		return nil, err
	}
	rc.ItemID = itemID

	res, err := sec.Submit(ctx, rc)
	if err != nil {
		return nil, err
	}
	logging.Info("Section submitted",
		"section_id", sectionID,
		"actor_id", actor.ID,
		"subject_id", subjectID,
		"item_id", res.ItemID,
		"status", res.Status,
		"failed_fields", len(res.Errors),
	)
	return res, nil
}

// Items renders the items of a multi or incremental section.
func (s *PlanService) Items(ctx context.Context, actor *models.User, sectionID, subjectID int64) (*plan.SectionView, error) {
	sec, err := s.section(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if t := sec.Type(); t != plan.Multi && t != plan.Incremental {
		return nil, common.ValidationError("section %d of type %s has no items", sectionID, t)
	}
	rc, err := s.requestContext(ctx, actor, subjectID, nil)
	if err != nil {
		return nil, err
	}
	if err := rc.Resolver.RequireView(ctx, subjectID); err != nil {
		return nil, err
	}

	v, err := sec.Render(ctx, rc)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, common.PermissionError("user %d may not view section %d of user %d", actor.ID, sectionID, subjectID)
	}
	return v, nil
}

type itemDeleter interface {
	DeleteItem(ctx context.Context, rc *plan.RequestContext, itemID int64) error
}

func (s *PlanService) DeleteItem(ctx context.Context, actor *models.User, sectionID, subjectID, itemID int64) error {
	sec, err := s.section(ctx, sectionID)
	if err != nil {
		return err
	}
	d, ok := sec.(itemDeleter)
	if !ok {
		return common.ValidationError("section %d of type %s has no items", sectionID, sec.Type())
	}
	rc, err := s.requestContext(ctx, actor, subjectID, nil)
	if err != nil {
		return err
	}
	if err := rc.Resolver.RequireView(ctx, subjectID); err != nil {
		return err
	}
	return d.DeleteItem(ctx, rc, itemID)
}
