// Package validation wraps go-playground/validator with the rules and
// message format used across the service.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var nonDigits = regexp.MustCompile(`\D`)

// ContactDigits strips everything but digits from a phone number.
func ContactDigits(contact string) string {
	return nonDigits.ReplaceAllString(contact, "")
}

// IsContact10 reports whether contact holds exactly ten digits once formatting is stripped.
func IsContact10(contact string) bool {
	return len(ContactDigits(contact)) == 10
}

// New returns a validator that reports fields by their json names and knows
// the "contact10" and "notblank" rules.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("contact10", func(fl validator.FieldLevel) bool {
		return IsContact10(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Messages turns a validator error into one readable message per violation.
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "contact10":
		return field + " must be a 10 digit number"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
