// Package fields implements the typed form fields of a learning plan section.
package fields

import (
	"context"
	"fmt"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/host"
	models "infinite-experiment/plp/internal/models/gorm"
)

// Value is what a field hands over for storage. Skip leaves the stored value
// untouched; a nil Raw clears it.
type Value struct {
	Raw    *string
	Upload *host.Upload
	Skip   bool
}

// RenderData is the data bag passed to presentation for one field.
type RenderData map[string]any

// Deps are the host collaborators some field kinds need.
type Deps struct {
	Courses host.Courses
	Files   host.FileStore
}

// Kind is the behaviour of one field type.
type Kind interface {
	Type() Type
	Editable() bool
	SubmittedValue(f *Field, in Input) (Value, error)
	FormatUserData(ctx context.Context, f *Field, raw *string) (string, error)
	PreSave(ctx context.Context, f *Field, subjectID int64, v *Value) error
	ApplyExtraData(f *Field, data RenderData, raw *string)
}

// Field is a stored field record bound to its kind.
type Field struct {
	Record  models.Field
	Options Options
	kind    Kind
}

func (f *Field) ID() int64      { return f.Record.ID }
func (f *Field) Type() Type     { return f.kind.Type() }
func (f *Field) Editable() bool { return f.kind.Editable() }

// InputName is the request parameter the field reads.
func (f *Field) InputName() string {
	return fmt.Sprintf("field_%d", f.Record.ID)
}

func (f *Field) SubmittedValue(in Input) (Value, error) {
	if !f.Editable() {
		return Value{Skip: true}, nil
	}
	return f.kind.SubmittedValue(f, in)
}

// FormatUserData renders a stored value for display. A nil value is "".
func (f *Field) FormatUserData(ctx context.Context, raw *string) (string, error) {
	if raw == nil {
		return "", nil
	}
	return f.kind.FormatUserData(ctx, f, raw)
}

func (f *Field) PreSave(ctx context.Context, subjectID int64, v *Value) error {
	if v.Skip {
		return nil
	}
	return f.kind.PreSave(ctx, f, subjectID, v)
}

// Validate applies the field's validation rules and returns "" on success.
// Uploads are checked by file name.
func (f *Field) Validate(v Value) string {
	if v.Skip {
		return ""
	}
	s := ""
	switch {
	case v.Upload != nil:
		s = v.Upload.FileName
	case v.Raw != nil:
		s = *v.Raw
	}
	return common.ValidateValue(f.Record.Title, s, f.Record.Validation)
}

// Discard releases an upload that will not be stored.
func (v *Value) Discard() {
	if v.Upload == nil {
		return
	}
	_ = v.Upload.Close()
	v.Upload = nil
}

// RenderData builds the presentation bag for a stored value, falling back to
// the field default when nothing is stored.
func (f *Field) RenderData(ctx context.Context, raw *string) RenderData {
	data := RenderData{
		"id":           f.Record.ID,
		"name":         f.InputName(),
		"title":        f.Record.Title,
		"type":         string(f.Type()),
		"placeholder":  f.Record.Placeholder,
		"instructions": f.Record.Instructions,
		"editable":     f.Editable(),
	}
	if raw == nil && f.Record.DefaultValue != "" {
		def := f.Record.DefaultValue
		raw = &def
	}
	if raw != nil {
		data["value"] = *raw
	}
	if display, err := f.FormatUserData(ctx, raw); err == nil {
		data["display"] = display
	}
	f.kind.ApplyExtraData(f, data, raw)
	return data
}

func strPtr(s string) *string { return &s }
