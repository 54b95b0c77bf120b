package validator

import (
	"errors"
	"fmt"
	"strings"

	"anoa.com/alumninetwork/pkg/apperror"
	"github.com/go-playground/validator/v10"
)

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

// ToAppError converts binding errors into a ValidationError that names the offending fields.
func ToAppError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperror.NewValidation("invalid request body: " + err.Error())
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields = append(fields, jsonFieldName(fieldError.Field()))
	}
	return apperror.NewValidation(FormatValidationError(err), fields...)
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := jsonFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func jsonFieldName(field string) string {
	fieldNames := map[string]string{
		"Email":         "email",
		"OTP":           "otp",
		"Name":          "name",
		"CollegeName":   "college_name",
		"Role":          "role",
		"Phone":         "phone",
		"Username":      "username",
		"Password":      "password",
		"Content":       "content",
		"PassedOutYear": "passed_out_year",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return strings.ToLower(field)
}
