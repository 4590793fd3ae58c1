package fields

import (
	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	models "infinite-experiment/plp/internal/models/gorm"
)

// Type is the stored type tag of a field.
type Type string

const (
	Text        Type = "text"
	Textarea    Type = "textarea"
	Select      Type = "select"
	Checkbox    Type = "checkbox"
	Radio       Type = "radio"
	Rating      Type = "rating"
	File        Type = "file"
	Matrix      Type = "matrix"
	Course      Type = "course"
	Editor      Type = "editor"
	Description Type = "description"
)

type constructor func(deps Deps) Kind

var registry = map[Type]constructor{
	Text:        func(Deps) Kind { return textKind{typ: Text} },
	Textarea:    func(Deps) Kind { return textKind{typ: Textarea} },
	Editor:      func(Deps) Kind { return textKind{typ: Editor} },
	Select:      func(Deps) Kind { return choiceKind{typ: Select} },
	Checkbox:    func(Deps) Kind { return choiceKind{typ: Checkbox, alwaysMulti: true} },
	Radio:       func(Deps) Kind { return choiceKind{typ: Radio, neverMulti: true} },
	Rating:      func(Deps) Kind { return ratingKind{} },
	File:        func(d Deps) Kind { return fileKind{files: d.Files} },
	Matrix:      func(Deps) Kind { return matrixKind{} },
	Course:      func(d Deps) Kind { return courseKind{courses: d.Courses} },
	Description: func(Deps) Kind { return descriptionKind{} },
}

// Types lists every registered field type.
func Types() []Type {
	return []Type{Text, Textarea, Select, Checkbox, Radio, Rating, File, Matrix, Course, Editor, Description}
}

// New binds a stored field record to its kind. Unknown type tags are a
// configuration error.
func New(rec models.Field, deps Deps) (*Field, error) {
	ctor, ok := registry[Type(rec.Type)]
	if !ok {
		return nil, common.ConfigError(constants.ErrCodeUnknownFieldType, "field %d has unknown type %q", rec.ID, rec.Type)
	}
	opts, err := ParseOptions(rec.Options)
	if err != nil {
		return nil, err
	}
	return &Field{Record: rec, Options: opts, kind: ctor(deps)}, nil
}
