package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the struct tags and flattens the result into one
// human-readable error.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs []string
	for _, err := range err.(validator.ValidationErrors) {
		field := strings.ToLower(err.Field())
		switch err.Tag() {
		case "required":
			errs = append(errs, field+" is required")
		case "email":
			errs = append(errs, field+" must be a valid email")
		case "min":
			errs = append(errs, field+" must be at least "+err.Param()+" characters")
		case "max":
			errs = append(errs, field+" must be at most "+err.Param()+" characters")
		default:
			errs = append(errs, field+" is invalid")
		}
	}

	return fmt.Errorf("%s", strings.Join(errs, ", "))
}
