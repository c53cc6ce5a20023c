package main

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError lists the offending fields of a request payload
// keyed by their json name.
type ValidationError struct {
	Fields map[string]string
}

func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Fields))
	for field, msg := range ve.Fields {
		parts = append(parts, field+" "+msg)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// BookValidator wraps go-playground/validator and reports errors
// with the json names of the fields.
type BookValidator struct {
	v *validator.Validate
}

// NewBookValidator returns a ready to use BookValidator.
func NewBookValidator() *BookValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &BookValidator{v: v}
}

// Validate checks the book constraints. It returns a *ValidationError
// when one or more fields are invalid.
func (bv *BookValidator) Validate(book *Book) error {
	err := bv.v.Struct(book)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	fields := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fields[e.Field()] = friendlyMessage(e)
	}
	return &ValidationError{Fields: fields}
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	default:
		return "is invalid"
	}
}
