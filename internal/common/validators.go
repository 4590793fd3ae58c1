package common

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags
	notBlankTag   = "notblank"
	colourCodeTag = "colourcode"

	colourCodeRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = Validate.RegisterValidation(colourCodeTag, colourCodeValidation)

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, colourCodeTag} {
		_ = Validate.RegisterTranslation(tag, Translator, registerFn, translateCustomValidationErrs)
	}
}

func translateCustomValidationErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case colourCodeTag:
		return fe.Field() + " must be a colour code such as #1a2b3c"
	default:
		return ""
	}
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func colourCodeValidation(fl validator.FieldLevel) bool {
	str, ok := fl.Field().Interface().(string)
	return ok && (str == "" || colourCodeRe.MatchString(str))
}

// ValidateValue checks one value against a comma separated tag list and
// returns a readable message, or "" when the value passes.
func ValidateValue(label, value, tags string) (msg string) {
	tags = strings.TrimSpace(tags)
	if tags == "" {
		return ""
	}
	// validator panics on unknown tags, which here come from stored configuration
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprintf("%s has an invalid validation rule %q", label, tags)
		}
	}()
	err := Validate.Var(value, tags)
	if err == nil {
		return ""
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err.Error()
	}
	return strings.TrimSpace(label + errs[0].Translate(Translator))
}

// FieldErrors maps an input name to its validation message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	return fmt.Sprintf("%d fields failed validation", len(e))
}

// ValidateStruct checks v's validate tags and returns nil when it passes.
func ValidateStruct(v any) FieldErrors {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"_": err.Error()}
	}
	out := make(FieldErrors, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Translate(Translator)
	}
	return out
}
