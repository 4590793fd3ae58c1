package plan

import (
	"context"
	"fmt"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/fields"
	"infinite-experiment/plp/internal/logging"
	models "infinite-experiment/plp/internal/models/gorm"
	"infinite-experiment/plp/internal/permissions"
	"infinite-experiment/plp/internal/query"
)

// sectionBase is the state and behaviour every section variant shares.
type sectionBase struct {
	rec      models.Section
	conf     permissions.Confidentiality
	settings *Settings
	fields   []*fields.Field
	perms    permissions.RoleMatrix
	store    *Store
}

func (b *sectionBase) Record() *models.Section                      { return &b.rec }
func (b *sectionBase) Fields() []*fields.Field                      { return b.fields }
func (b *sectionBase) Settings() *Settings                          { return b.settings }
func (b *sectionBase) Permissions() permissions.RoleMatrix          { return b.perms }
func (b *sectionBase) Confidentiality() permissions.Confidentiality { return b.conf }

func (b *sectionBase) SettingsOwner() (string, int64) { return constants.RefSection, b.rec.ID }

func (b *sectionBase) view(t SectionType, display string) *SectionView {
	return &SectionView{
		ID:              b.rec.ID,
		Title:           b.rec.Title,
		Type:            t,
		Location:        b.rec.Location,
		Confidentiality: b.conf,
		Display:         display,
	}
}

// visible gates data recorded by creatorID (0 when not tracked) about the subject.
func (b *sectionBase) visible(ctx context.Context, rc *RequestContext, subjectID, creatorID int64) (bool, error) {
	allowed, err := roleAllows(ctx, rc, b.perms, constants.ActionView)
	if err != nil || !allowed {
		return false, err
	}
	return rc.Resolver.CanSeeConfidentiality(ctx, b.conf, subjectID, creatorID)
}

// canEdit needs the edit capability, the role action and sight of the data.
func (b *sectionBase) canEdit(ctx context.Context, rc *RequestContext, action string, creatorID int64) (bool, error) {
	ok, err := rc.Resolver.HasPermissionFor(ctx, constants.CapEdit, rc.SubjectID())
	if err != nil || !ok {
		return false, err
	}
	if ok, err = roleAllows(ctx, rc, b.perms, action); err != nil || !ok {
		return false, err
	}
	return rc.Resolver.CanSeeConfidentiality(ctx, b.conf, rc.SubjectID(), creatorID)
}

func (b *sectionBase) requireEdit(ctx context.Context, rc *RequestContext, action string, creatorID int64) error {
	ok, err := b.canEdit(ctx, rc, action, creatorID)
	if err != nil {
		return err
	}
	if !ok {
		return common.PermissionError("user %d may not %s section %d of user %d", rc.ActorID(), action, b.rec.ID, rc.SubjectID())
	}
	return nil
}

// submitFields runs submitted → validate → pre-save → persist for every
// editable field. A failing field is recorded and the rest still saved.
func (b *sectionBase) submitFields(ctx context.Context, rc *RequestContext, put func(f *fields.Field, value *string) error) map[string]string {
	errs := make(map[string]string)
	fail := func(f *fields.Field, msg string) {
		errs[f.InputName()] = msg
		logging.Warn("Field value not saved",
			"section_id", b.rec.ID,
			"field_id", f.ID(),
			"field_type", f.Type(),
			"subject_id", rc.SubjectID(),
			"error", msg,
		)
		if b.store != nil && b.store.metrics != nil {
			b.store.metrics.FieldSaveFailures.WithLabelValues(string(f.Type())).Inc()
		}
	}

	for _, f := range b.fields {
		if !f.Editable() {
			continue
		}
		v, err := f.SubmittedValue(rc.Input)
		if err != nil {
			fail(f, err.Error())
			continue
		}
		if v.Skip {
			continue
		}
		if msg := f.Validate(v); msg != "" {
			v.Discard()
			fail(f, msg)
			continue
		}
		if err := f.PreSave(ctx, rc.SubjectID(), &v); err != nil {
			v.Discard()
			fail(f, err.Error())
			continue
		}
		v.Discard()
		if err := put(f, v.Raw); err != nil {
			fail(f, err.Error())
		}
	}
	return errs
}

func submitResult(itemID int64, errs map[string]string) *SubmitResult {
	res := &SubmitResult{Status: constants.StatusSaved, ItemID: itemID}
	if len(errs) > 0 {
		res.Status = constants.StatusPartiallySaved
		res.Errors = errs
	}
	return res
}

func (b *sectionBase) editableView(ctx context.Context, rc *RequestContext, v *SectionView, action string, creatorID int64) error {
	ok, err := b.canEdit(ctx, rc, action, creatorID)
	if err != nil {
		return err
	}
	v.Editable = ok
	return nil
}

// SingleSection keeps one current value per field and subject.
type SingleSection struct {
	*sectionBase
}

func (s *SingleSection) Type() SectionType { return Single }
func (s *SingleSection) Editable() bool    { return true }

func (s *SingleSection) Render(ctx context.Context, rc *RequestContext) (*SectionView, error) {
	ok, err := s.visible(ctx, rc, rc.SubjectID(), 0)
	if err != nil || !ok {
		return nil, err
	}

	v := s.view(Single, "form")
	if err := s.editableView(ctx, rc, v, constants.ActionEdit, 0); err != nil {
		return nil, err
	}
	for _, f := range s.fields {
		raw, _, err := s.store.values.GetUserValue(ctx, f.ID(), rc.SubjectID())
		if err != nil {
			return nil, err
		}
		v.Fields = append(v.Fields, f.RenderData(ctx, raw))
	}
	return v, nil
}

func (s *SingleSection) Submit(ctx context.Context, rc *RequestContext) (*SubmitResult, error) {
	if err := s.requireEdit(ctx, rc, constants.ActionEdit, 0); err != nil {
		return nil, err
	}
	errs := s.submitFields(ctx, rc, func(f *fields.Field, value *string) error {
		return s.store.values.PutUserValue(ctx, f.ID(), rc.SubjectID(), rc.ActorID(), value)
	})
	return submitResult(0, errs), nil
}

// MultiSection holds any number of items per subject. A save creates an
// item unless rc.ItemID names one to update.
type MultiSection struct {
	*sectionBase
}

func (s *MultiSection) Type() SectionType { return Multi }
func (s *MultiSection) Editable() bool    { return true }

func (s *MultiSection) Render(ctx context.Context, rc *RequestContext) (*SectionView, error) {
	return s.renderItems(ctx, rc, s.view(Multi, "list"))
}

func (s *MultiSection) renderItems(ctx context.Context, rc *RequestContext, v *SectionView) (*SectionView, error) {
	allowed, err := roleAllows(ctx, rc, s.perms, constants.ActionView)
	if err != nil || !allowed {
		return nil, err
	}
	if err := s.editableView(ctx, rc, v, constants.ActionAdd, rc.ActorID()); err != nil {
		return nil, err
	}

	items, err := s.VisibleItems(ctx, rc)
	if err != nil {
		return nil, err
	}
	v.Items = make([]ItemView, 0, len(items))
	for _, item := range items {
		iv := ItemView{ID: item.ID, CreatedBy: item.CreatedBy, CreatedAt: item.CreatedAt}
		for _, f := range s.fields {
			raw, err := s.itemValue(ctx, item, f)
			if err != nil {
				return nil, err
			}
			iv.Fields = append(iv.Fields, f.RenderData(ctx, raw))
		}
		v.Items = append(v.Items, iv)
	}
	return v, nil
}

// VisibleItems loads the subject's items and keeps those the actor may see.
func (s *MultiSection) VisibleItems(ctx context.Context, rc *RequestContext) ([]Item, error) {
	recs, err := s.store.values.SectionItems(ctx, s.rec.ID, rc.SubjectID())
	if err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(recs))
	for _, rec := range recs {
		item := Item{rec}
		ok, err := rc.Resolver.CanSeeConfidentiality(ctx, s.conf, item.SubjectUserID(), item.CreatedBy)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *MultiSection) itemValue(ctx context.Context, item Item, f *fields.Field) (*string, error) {
	if err := item.bound(); err != nil {
		return nil, err
	}
	raw, _, err := s.store.values.GetItemValue(ctx, item.ID, f.ID())
	return raw, err
}

func (s *MultiSection) Submit(ctx context.Context, rc *RequestContext) (*SubmitResult, error) {
	return s.submit(ctx, rc, rc.ItemID)
}

func (s *MultiSection) submit(ctx context.Context, rc *RequestContext, itemID int64) (*SubmitResult, error) {
	var item Item
	if itemID != 0 {
		existing, err := s.loadItem(ctx, rc, itemID)
		if err != nil {
			return nil, err
		}
		if err := s.requireEdit(ctx, rc, constants.ActionEdit, existing.CreatedBy); err != nil {
			return nil, err
		}
		item = *existing
	} else {
		if err := s.requireEdit(ctx, rc, constants.ActionAdd, rc.ActorID()); err != nil {
			return nil, err
		}
		item = Item{models.Item{SectionID: s.rec.ID, UserID: rc.SubjectID(), CreatedBy: rc.ActorID()}}
		if err := item.bound(); err != nil {
			return nil, err
		}
		if err := s.store.values.Items.Save(ctx, &item.Item); err != nil {
			return nil, err
		}
	}

	errs := s.submitFields(ctx, rc, func(f *fields.Field, value *string) error {
		return s.store.values.PutItemValue(ctx, item.ID, f.ID(), value)
	})
	return submitResult(item.ID, errs), nil
}

// loadItem finds an item of this section and subject, or fails not-found.
func (s *MultiSection) loadItem(ctx context.Context, rc *RequestContext, itemID int64) (*Item, error) {
	rec, err := s.store.values.Items.Load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.SectionID != s.rec.ID || rec.UserID != rc.SubjectID() {
		return nil, common.NotFoundError("item %d not found in section %d", itemID, s.rec.ID)
	}
	return &Item{*rec}, nil
}

// DeleteItem removes one item and its values.
func (s *MultiSection) DeleteItem(ctx context.Context, rc *RequestContext, itemID int64) error {
	item, err := s.loadItem(ctx, rc, itemID)
	if err != nil {
		return err
	}
	if err := s.requireEdit(ctx, rc, constants.ActionDelete, item.CreatedBy); err != nil {
		return err
	}
	logging.Info("Deleting item", "section_id", s.rec.ID, "item_id", itemID, "actor_id", rc.ActorID())
	return s.store.values.DeleteItem(ctx, itemID)
}

// IncrementalSection stores items like a multi section but only appends, and
// renders every entry as one log table.
type IncrementalSection struct {
	MultiSection
}

func (s *IncrementalSection) Type() SectionType { return Incremental }

func (s *IncrementalSection) Render(ctx context.Context, rc *RequestContext) (*SectionView, error) {
	v := s.view(Incremental, "log")
	for _, f := range s.fields {
		v.Headers = append(v.Headers, f.Record.Title)
	}
	return s.renderItems(ctx, rc, v)
}

func (s *IncrementalSection) Submit(ctx context.Context, rc *RequestContext) (*SubmitResult, error) {
	return s.submit(ctx, rc, 0)
}

func (s *IncrementalSection) DeleteItem(context.Context, *RequestContext, int64) error {
	return common.ValidationError("entries of section %d cannot be removed", s.rec.ID)
}

// DBSection shows the result of a query instead of user input.
type DBSection struct {
	*sectionBase
}

func (s *DBSection) Type() SectionType { return DB }
func (s *DBSection) Editable() bool    { return false }

// QuerySettings validates the query settings of the section.
func (s *DBSection) QuerySettings() (query.Settings, error) {
	return query.ParseSettings(s.settings.Map(), s.rec.MISConnectionID)
}

func (s *DBSection) Render(ctx context.Context, rc *RequestContext) (*SectionView, error) {
	ok, err := s.visible(ctx, rc, rc.SubjectID(), 0)
	if err != nil || !ok {
		return nil, err
	}

	qs, err := s.QuerySettings()
	if err != nil {
		return nil, fmt.Errorf("section %d: %w", s.rec.ID, err)
	}
	if s.store.queries == nil {
		return nil, common.ConfigError(constants.ErrCodeConfigMalformed, "no query engine for db section %d", s.rec.ID)
	}
	res, err := s.store.queries.Run(ctx, qs, rc.Subject)
	if err != nil {
		return nil, fmt.Errorf("section %d: %w", s.rec.ID, err)
	}

	v := s.view(DB, string(qs.Display))
	v.Query = res
	return v, nil
}

func (s *DBSection) Submit(context.Context, *RequestContext) (*SubmitResult, error) {
	return nil, common.ValidationError("%s: section %d", constants.StatusNotEditable, s.rec.ID)
}
