// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"bizdir/internal/apperr"
)

// validate checks request DTOs. Field names in errors are the JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of dst and reports the first
// failure as an InvalidInput error named after the field.
func validateStruct(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return apperr.Wrap(apperr.KindInvalidInput, "invalid_request", "Request is invalid.", err)
	}
	fe := verrs[0]
	name, _, _ := strings.Cut(fe.Field(), "[")
	return apperr.Wrap(apperr.KindInvalidInput, "invalid_"+name, describe(fe), err)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required."
	case "email":
		return field + " must be a valid email address."
	case "uuid", "uuid4":
		return field + " must be a valid identifier."
	case "url", "http_url":
		return field + " must be a valid URL."
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s items.", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s items.", field, fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters.", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "numeric":
		return field + " must contain only digits."
	default:
		return field + " is invalid."
	}
}
