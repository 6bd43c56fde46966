package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"backoffice-ledger/internal/core"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return strings.ToLower(fld.Name)
		}
		return name
	})
	return v
}

// validateRequest checks req's validate tags. The first failing field is
// reported as a core.ValidationError.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	fe := fieldErrs[0]
	return &core.ValidationError{Field: fieldPath(fe.Namespace()), Message: describe(fe)}
}

// fieldPath drops the leading struct name from a validator namespace,
// turning "CreateOrderRequest.items[0].quantity" into "items[0].quantity".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "failed " + fe.Tag() + " validation"
}

func parseDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return nil, &core.ValidationError{Field: field, Message: "must be a date in YYYY-MM-DD format"}
	}
	return &t, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
