package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	wordCharsTag  = "alphanum_"
	wordCharsText = "only alphanumeric characters and underscores are allowed"

	requiredText = "this field is required"
)

var wordCharsRegex = regexp.MustCompile(`^[\w\s]+$`)

// InitValidators sets up the shared validator: default English translations,
// JSON tag names in error messages, and this package's custom tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// report fields under their JSON names, not the Go struct names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(wordCharsTag, wordCharsValidation)
	RegisterCustomTranslation(validate, translator, wordCharsTag, wordCharsText)

	RegisterCustomTranslation(validate, translator, "required", requiredText, true)
	RegisterCustomTranslation(validate, translator, "required_with", requiredText, true)
}

// RegisterCustomTranslation registers the error text rendered for a
// validation tag, optionally overriding a built-in translation.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func wordCharsValidation(fl validator.FieldLevel) bool {
	return wordCharsRegex.MatchString(fl.Field().String())
}
