package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

// ErrEmptyBody is returned when a JSON request carries no body at all
var ErrEmptyBody = errors.New("request body is empty")

// ValidateRequest validates a struct with validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// DecodeAndValidate decodes a JSON request body and validates it. Decoding
// failures are returned as-is so callers can tell them apart from
// validator.ValidationErrors.
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return ValidateRequest(v)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var out []ValidationError

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			out = append(out, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return out
}

// RespondWithDecodeError writes 400 for a DecodeAndValidate failure, with
// field details when the failure came from the validator
func RespondWithDecodeError(w http.ResponseWriter, err error) {
	if fields := FormatValidationErrors(err); len(fields) > 0 {
		RespondWithValidationErrors(w, fields)
		return
	}
	RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "uuid", "uuid4":
		return "Must be a valid UUID"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		if e.Kind() == reflect.String || e.Kind() == reflect.Slice {
			return "Must have at least " + e.Param() + " characters or items"
		}
		return "Value must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String || e.Kind() == reflect.Slice {
			return "Must have at most " + e.Param() + " characters or items"
		}
		return "Value must be at most " + e.Param()
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "gt":
		return "Value must be greater than " + e.Param()
	case "lt":
		return "Value must be less than " + e.Param()
	case "latitude":
		return "Latitude must be between -90 and 90"
	case "longitude":
		return "Longitude must be between -180 and 180"
	default:
		return "Invalid value"
	}
}
