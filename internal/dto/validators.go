package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var subjectCodePattern = regexp.MustCompile(`^[A-Za-z]{2,4}$`)

// RegisterValidators installs the custom binding rules on gin's validator
// engine. Call once during startup, before any route binds a request.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("subjectcode", func(fl validator.FieldLevel) bool {
		return subjectCodePattern.MatchString(fl.Field().String())
	})
}
