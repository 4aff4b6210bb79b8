// Package validator turns go-playground validation errors into per-field
// messages for API responses.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var errorMessages = map[string]string{
	"required": "The field '%s' is required.",
	"min":      "The field '%s' must be at least %s.",
	"max":      "The field '%s' must be at most %s.",
	"lte":      "The field '%s' must be less than or equal to %s.",
	"gte":      "The field '%s' must be greater than or equal to %s.",
	"gt":       "The field '%s' must be greater than %s.",
	"lt":       "The field '%s' must be less than %s.",
	"oneof":    "The field '%s' must be one of %s.",
}

func parseMessage(name string, e validator.FieldError) string {
	if msg, ok := errorMessages[e.Tag()]; ok {
		if strings.Count(msg, "%s") == 2 {
			return fmt.Sprintf(msg, name, e.Param())
		}
		return fmt.Sprintf(msg, name)
	}
	return fmt.Sprintf("Field '%s' is invalid: %s", name, e.Tag())
}

// ValidateStruct validates s, a struct pointer, and returns the messages
// keyed by field name. The map is empty when s is valid.
func ValidateStruct(s any) map[string]string {
	return Fields(validate.Struct(s), s)
}

// Fields converts err into messages keyed by the json, form or Go name of
// each failing field of s. Errors that are not validation errors yield nil.
func Fields(err error, s any) map[string]string {
	out := make(map[string]string)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, e := range verrs {
		name := e.StructField()
		if t != nil && t.Kind() == reflect.Struct {
			if f, ok := t.FieldByName(e.StructField()); ok {
				name = tagName(f, name)
			}
		}
		out[name] = parseMessage(name, e)
	}
	return out
}

func tagName(f reflect.StructField, fallback string) string {
	for _, key := range []string{"json", "form"} {
		if tag := strings.Split(f.Tag.Get(key), ",")[0]; tag != "" && tag != "-" {
			return tag
		}
	}
	return fallback
}
