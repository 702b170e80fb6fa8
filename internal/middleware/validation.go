package middleware

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

// formDecoder fills request structs from form bodies using their json tags
var formDecoder *form.Decoder

func init() {
	validate = validator.New()

	formDecoder = form.NewDecoder()
	formDecoder.SetTagName("json")
}

// ValidateRequest validates the request body against a struct with validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// DecodeAndValidate decodes a JSON or form encoded request body and validates
// it. Form values are matched to fields by their json tag.
func DecodeAndValidate(r *http.Request, v interface{}) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := decodeForm(r, v); err != nil {
			return err
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			return err
		}
	}

	return ValidateRequest(v)
}

func decodeForm(r *http.Request, v interface{}) error {
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return formDecoder.Decode(v, r.PostForm)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return errors
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "eqfield":
		return "Must match " + e.Param()
	case "numeric":
		return "Must contain digits only"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
