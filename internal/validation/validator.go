// Cinematch - Content-Based Film Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinematch

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/cinematch/internal/models"
)

// CodeValidationError is the APIError code for rejected input.
const CodeValidationError = "VALIDATION_ERROR"

// FieldError describes one rejected field. Field is the json name.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return e.Message }

// Errors is the list of rejected fields of one request.
type Errors []FieldError

func (es Errors) Error() string {
	if len(es) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(es))
	for i := range es {
		msgs[i] = es[i].Message
	}
	return strings.Join(msgs, "; ")
}

// ToAPIError renders es as a VALIDATION_ERROR body. Details["fields"]
// lists every rejected field.
func (es Errors) ToAPIError() *models.APIError {
	msg := "Validation failed"
	if len(es) > 0 {
		msg = es.Error()
	}
	return &models.APIError{
		Code:    CodeValidationError,
		Message: msg,
		Details: map[string]interface{}{"fields": []FieldError(es)},
	}
}

var (
	instance *validator.Validate
	once     sync.Once
)

// GetValidator returns the shared validator. It reports json field names
// and knows two extra tags: notblank and rating (1..10).
func GetValidator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		mustRegister(v, "rating", func(fl validator.FieldLevel) bool {
			r := fl.Field().Int()
			return r >= models.MinReviewRating && r <= models.MaxReviewRating
		})
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

// ValidateStruct validates s and returns nil when every field passes.
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, verr.ToAPIError())
//	    return
//	}
func ValidateStruct(s interface{}) Errors {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return Errors{{Field: "request", Tag: "invalid", Message: err.Error()}}
	}
	out := make(Errors, len(fes))
	for i, fe := range fes {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: describe(fe),
		}
	}
	return out
}

func describe(fe validator.FieldError) string {
	f, p := fe.Field(), fe.Param()
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "notblank":
		return f + " must not be blank"
	case "uuid":
		return f + " must be a valid UUID"
	case "rating":
		return fmt.Sprintf("%s must be between %d and %d", f, models.MinReviewRating, models.MaxReviewRating)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, p)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s%s", f, p, unit)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s%s", f, p, unit)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, p)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", f, p)
	default:
		return fmt.Sprintf("%s failed %s validation", f, fe.Tag())
	}
}
