package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var requestValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validate checks the `validate` tags of a request body and returns the
// first violation as a readable error.
func validate(req any) error {
	err := requestValidator.Struct(req)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}

	e := errs[0]
	field := fieldLabel(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "min":
		return fmt.Errorf("%s must have at least %s entries", field, e.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

// fieldLabel turns employee_codes[0] into "Employee Codes[0]".
func fieldLabel(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
