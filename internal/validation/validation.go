// Package validation holds the struct validator shared by the domain services and
// the HTTP binding layer.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"classroll/internal/apperr"
	"classroll/internal/timeslot"
)

// custom tags & texts
const (
	weekdayTag  = "weekday"
	weekdayText = "must be one of Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday"

	clockTag  = "clock"
	clockText = "must be a 24-hour time in HH:MM format"
)

var texts = map[string]string{
	"required": "this field is required",
	"uuid":     "must be a valid UUID",
	"email":    "must be a valid email address",
	"min":      "is too short",
	"oneof":    "has an unsupported value",
	"gt":       "must be greater than the minimum",
	"lte":      "exceeds the maximum",
	weekdayTag: weekdayText,
	clockTag:   clockText,
}

// Validate is the process-wide validator instance.
var Validate = New()

// New builds a validator that reports JSON field names and knows the timetable tags.
func New() *validator.Validate {
	v := validator.New()

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(weekdayTag, func(fl validator.FieldLevel) bool {
		_, err := timeslot.ParseWeekday(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(clockTag, func(fl validator.FieldLevel) bool {
		_, err := timeslot.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// Struct validates s and converts failures into an apperr validation error with per-field messages.
func Struct(op string, s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.ErrValidation, op, "invalid input", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		text, ok := texts[fe.Tag()]
		if !ok {
			text = "is invalid"
		}
		fields[fe.Field()] = text
	}
	e := apperr.New(apperr.ErrValidation, op, "invalid input")
	e.Fields = fields
	return e
}

// CleanString trims all leading and trailing whitespace in s and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
