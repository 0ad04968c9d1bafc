package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	v       *validator.Validate
	dayRe   = regexp.MustCompile(`^\d{2}_\d{2}_\d{4}$`)
	monthRe = regexp.MustCompile(`^\*\d{2}_\d{4}$`)
)

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	if v == nil {
		v = validator.New()
		// Custom: report date spec is a day (dd_mm_yyyy), a month (*mm_yyyy)
		// or an inclusive range (dd_mm_yyyy -> dd_mm_yyyy).
		_ = v.RegisterValidation("datespec", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			if s == "" {
				return false
			}
			if strings.Contains(s, "->") {
				parts := strings.Split(s, "->")
				if len(parts) != 2 {
					return false
				}
				return dayRe.MatchString(strings.TrimSpace(parts[0])) &&
					dayRe.MatchString(strings.TrimSpace(parts[1]))
			}
			return dayRe.MatchString(s) || monthRe.MatchString(s)
		})
	}
	return v
}

// ValidateStruct validates a struct and returns a user-friendly error string.
// Returns empty string when valid.
func ValidateStruct(s any) string {
	if err := Validator().Struct(s); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				return fmt.Sprintf("%s is required", field)
			case "datespec":
				return fmt.Sprintf("%s must be dd_mm_yyyy, *mm_yyyy or 'dd_mm_yyyy -> dd_mm_yyyy'", field)
			case "dir":
				return fmt.Sprintf("%s must be an existing directory", field)
			case "min", "max", "gte", "lte":
				return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
			}
			return fmt.Sprintf("invalid %s", field)
		}
		return "invalid inputs"
	}
	return ""
}
