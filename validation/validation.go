// Package validation enforces the canonical shape of every entity before it
// reaches the store: required fields, enum membership, defaults, date and
// identifier coercion, and cross-field rules.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is the kind every ValidationError unwraps to.
var ErrValidation = errors.New("validation failed")

// FieldError describes one invalid value.
type FieldError struct {
	Field string `json:"field"`
	Value string `json:"value,omitempty"`
	Rule  string `json:"rule"`
}

// ValidationError lists every offending field of one entity at once.
type ValidationError struct {
	Entity  string       `json:"entity"`
	Missing []string     `json:"missing,omitempty"`
	Invalid []FieldError `json:"invalid,omitempty"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Invalid)+1)
	if len(e.Missing) > 0 {
		parts = append(parts, "champs requis manquants: "+strings.Join(e.Missing, ", "))
	}
	for _, f := range e.Invalid {
		if f.Value != "" {
			parts = append(parts, fmt.Sprintf("valeur invalide pour %s: %q (%s)", f.Field, f.Value, f.Rule))
		} else {
			parts = append(parts, fmt.Sprintf("valeur invalide pour %s (%s)", f.Field, f.Rule))
		}
	}
	return fmt.Sprintf("%s: %s", e.Entity, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newError(entity string) *ValidationError {
	return &ValidationError{Entity: entity}
}

func (e *ValidationError) missing(field string) {
	for _, f := range e.Missing {
		if f == field {
			return
		}
	}
	e.Missing = append(e.Missing, field)
}

func (e *ValidationError) invalid(field string, value any, rule string) {
	v := ""
	if value != nil {
		v = fmt.Sprint(value)
	}
	e.Invalid = append(e.Invalid, FieldError{Field: field, Value: v, Rule: rule})
}

// collect folds the result of validator.Struct into e.
func (e *ValidationError) collect(err error) {
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		e.invalid("", nil, err.Error())
		return
	}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required", "required_with":
			e.missing(fe.Field())
		default:
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			e.invalid(fe.Field(), fe.Value(), rule)
		}
	}
}

// orNil drops "missing" reports for fields already reported as invalid, so
// an unparseable reference is listed once.
func (e *ValidationError) orNil() error {
	if len(e.Invalid) > 0 && len(e.Missing) > 0 {
		missing := e.Missing[:0]
		for _, field := range e.Missing {
			if !e.hasInvalid(field) {
				missing = append(missing, field)
			}
		}
		e.Missing = missing
	}
	if len(e.Missing) == 0 && len(e.Invalid) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) hasInvalid(field string) bool {
	for _, f := range e.Invalid {
		if f.Field == field {
			return true
		}
	}
	return false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// instance returns the shared validator; field errors carry the JSON name of
// the field, or its BSON name for fields hidden from JSON.
func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(fieldName)
	})
	return validate
}

func fieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		name = strings.SplitN(fld.Tag.Get("bson"), ",", 2)[0]
	}
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
