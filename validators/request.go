// Package validators holds the shared go-playground/validator setup used by the per-route
// validator middlewares.
package validators

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their json name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates req and returns one message per failing field, keyed by the field's path.
// The result is empty when req is valid.
func Struct(req interface{}) map[string]string {
	errs := make(map[string]string)

	err := validate.Struct(req)
	if err == nil {
		return errs
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["request"] = "Invalid request!"
		return errs
	}
	for _, fe := range verrs {
		errs[fieldPath(fe)] = message(fe)
	}
	return errs
}

// fieldPath drops the root struct name: "req.price.amount" -> "price.amount".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required!", label)
	case "email":
		return "Invalid email!"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long!", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s!", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long!", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s!", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s!", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "alphanum":
		return fmt.Sprintf("%s may only contain letters and digits!", label)
	default:
		return fmt.Sprintf("%s is invalid!", label)
	}
}

// humanize turns a json name like "reminderDaysBefore" into "Reminder days before".
func humanize(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		if i == 0 && r >= 'a' && r <= 'z' {
			b.WriteRune(r - ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
