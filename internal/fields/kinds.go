package fields

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"infinite-experiment/plp/internal/host"
	"infinite-experiment/plp/internal/logging"
)

const defaultRatingMax = 5

// baseKind is the scalar behaviour most kinds start from.
type baseKind struct{}

func (baseKind) Editable() bool { return true }

func (baseKind) SubmittedValue(f *Field, in Input) (Value, error) {
	v, ok := in.Get(f.InputName())
	if !ok || v == "" {
		return Value{}, nil
	}
	return Value{Raw: &v}, nil
}

func (baseKind) FormatUserData(_ context.Context, _ *Field, raw *string) (string, error) {
	return *raw, nil
}

func (baseKind) PreSave(context.Context, *Field, int64, *Value) error { return nil }

func (baseKind) ApplyExtraData(*Field, RenderData, *string) {}

// text, textarea and editor
type textKind struct {
	baseKind
	typ Type
}

func (k textKind) Type() Type { return k.typ }

// select, checkbox and radio
type choiceKind struct {
	baseKind
	typ         Type
	alwaysMulti bool
	neverMulti  bool
}

func (k choiceKind) Type() Type { return k.typ }

func (k choiceKind) multi(f *Field) bool {
	if k.alwaysMulti {
		return true
	}
	return !k.neverMulti && f.Options.Multi
}

func (k choiceKind) SubmittedValue(f *Field, in Input) (Value, error) {
	if !k.multi(f) {
		return k.baseKind.SubmittedValue(f, in)
	}
	keys := make([]string, 0)
	for _, v := range in.GetAll(f.InputName()) {
		if v != "" {
			keys = append(keys, v)
		}
	}
	if len(keys) == 0 {
		return Value{}, nil
	}
	encoded, err := json.Marshal(keys)
	if err != nil {
		return Value{}, err
	}
	return Value{Raw: strPtr(string(encoded))}, nil
}

func (k choiceKind) FormatUserData(_ context.Context, f *Field, raw *string) (string, error) {
	return strings.Join(f.Options.Labels(k.selected(f, raw)), ","), nil
}

func (k choiceKind) ApplyExtraData(f *Field, data RenderData, raw *string) {
	selected := make(map[string]bool)
	for _, key := range k.selected(f, raw) {
		selected[key] = true
	}
	opts := make([]map[string]any, 0, len(f.Options.Choices))
	for _, c := range f.Options.Choices {
		opts = append(opts, map[string]any{"key": c.Key, "label": c.Label, "selected": selected[c.Key]})
	}
	data["options"] = opts
	data["multi"] = k.multi(f)
}

// selected resolves a stored value to option keys: a JSON list for multi
// fields, a single key otherwise.
func (k choiceKind) selected(f *Field, raw *string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	if !k.multi(f) {
		return []string{*raw}
	}
	return decodeKeys(*raw)
}

// decodeKeys reads a JSON list of keys, tolerating numbers and a bare key.
func decodeKeys(raw string) []string {
	var list []any
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return []string{raw}
	}
	keys := make([]string, 0, len(list))
	for _, v := range list {
		keys = append(keys, cast.ToString(v))
	}
	return keys
}

type ratingKind struct{ baseKind }

func (ratingKind) Type() Type { return Rating }

func (ratingKind) max(f *Field) int {
	if f.Options.Max > 0 {
		return f.Options.Max
	}
	if n := len(f.Options.Choices); n > 0 {
		return n
	}
	return defaultRatingMax
}

func (k ratingKind) PreSave(_ context.Context, f *Field, _ int64, v *Value) error {
	if v.Raw == nil {
		return nil
	}
	n, err := cast.ToIntE(strings.TrimSpace(*v.Raw))
	if err != nil || n < 1 || n > k.max(f) {
		return fmt.Errorf("%s must be a rating between 1 and %d", f.Record.Title, k.max(f))
	}
	v.Raw = strPtr(strconv.Itoa(n))
	return nil
}

func (ratingKind) FormatUserData(_ context.Context, f *Field, raw *string) (string, error) {
	if label, ok := f.Options.Label(*raw); ok {
		return label, nil
	}
	return *raw, nil
}

func (k ratingKind) ApplyExtraData(f *Field, data RenderData, raw *string) {
	current := 0
	if raw != nil {
		current = cast.ToInt(*raw)
	}
	scale := make([]map[string]any, 0, k.max(f))
	for i := 1; i <= k.max(f); i++ {
		label, ok := f.Options.Label(strconv.Itoa(i))
		if !ok {
			label = strconv.Itoa(i)
		}
		scale = append(scale, map[string]any{"value": i, "label": label, "selected": i == current})
	}
	data["scale"] = scale
}

// fileKind stores uploads through the host file store and keeps the file id.
type fileKind struct {
	baseKind
	files host.FileStore
}

func (fileKind) Type() Type { return File }

func (fileKind) SubmittedValue(f *Field, in Input) (Value, error) {
	upload, err := in.Upload(f.InputName())
	if err != nil {
		return Value{}, err
	}
	if upload == nil {
		return Value{Skip: true}, nil
	}
	return Value{Upload: upload}, nil
}

func (k fileKind) PreSave(ctx context.Context, f *Field, subjectID int64, v *Value) error {
	upload := v.Upload
	if upload == nil {
		return nil
	}
	v.Upload = nil
	defer upload.Close()

	if k.files == nil {
		return fmt.Errorf("no file store configured for %s", f.Record.Title)
	}
	stored, err := k.files.StoreUploadedFile(ctx, subjectID, upload)
	if err != nil {
		return err
	}
	v.Raw = strPtr(strconv.FormatInt(stored.ID, 10))
	return nil
}

func (k fileKind) FormatUserData(ctx context.Context, _ *Field, raw *string) (string, error) {
	id, err := strconv.ParseInt(*raw, 10, 64)
	if err != nil || k.files == nil {
		return "", nil
	}
	file, err := k.files.GetFile(ctx, id)
	if err != nil || file == nil {
		return "", err
	}
	return file.FileName, nil
}

func (fileKind) ApplyExtraData(_ *Field, data RenderData, raw *string) {
	if raw != nil {
		data["file_id"] = cast.ToInt64(*raw)
	}
}

// matrixKind asks for one choice per declared row; the stored value is a JSON
// object of row key to choice key.
type matrixKind struct{ baseKind }

func (matrixKind) Type() Type { return Matrix }

func (matrixKind) SubmittedValue(f *Field, in Input) (Value, error) {
	submitted := in.Nested(f.InputName())
	answers := make(map[string]string)
	for _, row := range f.Options.Rows {
		v, ok := submitted[row.Key]
		if !ok || v == "" {
			continue
		}
		if _, known := f.Options.Label(v); !known {
			continue
		}
		answers[row.Key] = v
	}
	if len(answers) == 0 {
		return Value{}, nil
	}
	encoded, err := json.Marshal(answers)
	if err != nil {
		return Value{}, err
	}
	return Value{Raw: strPtr(string(encoded))}, nil
}

func (k matrixKind) FormatUserData(_ context.Context, f *Field, raw *string) (string, error) {
	answers := k.decode(*raw)
	parts := make([]string, 0, len(answers))
	for _, row := range f.Options.Rows {
		if label, ok := f.Options.Label(answers[row.Key]); ok {
			parts = append(parts, row.Label+": "+label)
		}
	}
	return strings.Join(parts, ","), nil
}

func (k matrixKind) ApplyExtraData(f *Field, data RenderData, raw *string) {
	var answers map[string]string
	if raw != nil {
		answers = k.decode(*raw)
	}
	rows := make([]map[string]any, 0, len(f.Options.Rows))
	for _, row := range f.Options.Rows {
		rows = append(rows, map[string]any{
			"key":      row.Key,
			"label":    row.Label,
			"name":     fmt.Sprintf("%s[%s]", f.InputName(), row.Key),
			"selected": answers[row.Key],
		})
	}
	data["rows"] = rows
	data["options"] = f.Options.Choices
}

func (matrixKind) decode(raw string) map[string]string {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = cast.ToString(v)
	}
	return out
}

// courseKind references a course by id. Only existence is checked on save.
type courseKind struct {
	baseKind
	courses host.Courses
}

func (courseKind) Type() Type { return Course }

func (k courseKind) PreSave(ctx context.Context, f *Field, _ int64, v *Value) error {
	if v.Raw == nil {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(*v.Raw), 10, 64)
	if err != nil || id <= 0 {
		v.Raw = nil
		return nil
	}
	exists, err := k.courses.CourseExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		logging.Debug("Dropping reference to missing course", "field_id", f.Record.ID, "course_id", id)
		v.Raw = nil
	}
	return nil
}

func (k courseKind) FormatUserData(ctx context.Context, _ *Field, raw *string) (string, error) {
	id, err := strconv.ParseInt(*raw, 10, 64)
	if err != nil {
		return "", nil
	}
	course, err := k.courses.GetCourse(ctx, id)
	if err != nil || course == nil {
		return "", err
	}
	return course.FullName, nil
}

// descriptionKind shows its instructions and never takes input.
type descriptionKind struct{ baseKind }

func (descriptionKind) Type() Type     { return Description }
func (descriptionKind) Editable() bool { return false }

func (descriptionKind) SubmittedValue(*Field, Input) (Value, error) {
	return Value{Skip: true}, nil
}

func (descriptionKind) ApplyExtraData(f *Field, data RenderData, _ *string) {
	data["description"] = f.Record.Instructions
}
