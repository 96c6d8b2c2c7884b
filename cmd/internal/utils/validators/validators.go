package validators

import (
	"slotbook/cmd/internal/utils"

	"github.com/go-playground/validator/v10"
)

// IsDate validates a YYYY-MM-DD calendar date.
func IsDate(fl validator.FieldLevel) bool {
	_, err := utils.ParseDate(fl.Field().String())
	return err == nil
}

// IsClock validates an HH:MM time of day.
func IsClock(fl validator.FieldLevel) bool {
	_, err := utils.ParseClock(fl.Field().String())
	return err == nil
}

func NoWhiteSpaces(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return false
		}
	}
	return true
}

// Register installs the custom tags used by the request structs.
func Register(validate *validator.Validate) {
	_ = validate.RegisterValidation("date", IsDate)
	_ = validate.RegisterValidation("clock", IsClock)
	_ = validate.RegisterValidation("nospaces", NoWhiteSpaces)
}
