package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
)

var propertyNamePattern = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("propertyname", func(fl validator.FieldLevel) bool {
		return propertyNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("datatype", func(fl validator.FieldLevel) bool {
		switch DataType(fl.Field().String()) {
		case DataTypeNumber, DataTypeString, DataTypeBoolean, DataTypeDate,
			DataTypeEnumeration, DataTypeList, DataTypeFile, DataTypeUnknown:
			return true
		}
		return false
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		k := sl.Current().Interface().(KeyDefinition)
		if len(k.Options) > 0 && k.DataType != DataTypeEnumeration {
			sl.ReportError(k.Options, "Options", "options", "enumeration_only", "")
		}
	}, KeyDefinition{})
	return v
}

// Validator exposes the shared validator so handlers validate request bodies
// with the same custom rules.
func Validator() *validator.Validate { return validate }

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErr.Wrap(err, appErr.CodeInvalid, "validation failed")
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describeFieldError(fe))
	}
	return appErr.New(appErr.CodeInvalid, fmt.Sprintf("%T failed validation: %s", v, strings.Join(parts, "; ")))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "propertyname":
		return fmt.Sprintf("%s %q must match %s", fe.Field(), fe.Value(), propertyNamePattern.String())
	case "datatype":
		return fmt.Sprintf("%s %q is not a supported data type", fe.Field(), fe.Value())
	case "enumeration_only":
		return "options are only allowed on enumeration keys"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
