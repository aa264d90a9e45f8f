package api

import (
	"net/http"
	"regexp"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

var flagNamePattern = regexp.MustCompile(`^[A-Za-z0-9]+(-[A-Za-z0-9]+)*$`)

// RequestValidator plugs go-playground/validator into echo's c.Validate.
type RequestValidator struct {
	Validator *validator.Validate
}

// NewRequestValidator registers the custom tags used by request DTOs:
// flagname (kebab-case flag names) and role (known user roles).
func NewRequestValidator() *RequestValidator {
	v := validator.New()
	_ = v.RegisterValidation("flagname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return flagNamePattern.MatchString(name) && !types.IsReservedFlagName(name)
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return slices.Contains(types.KnownRoles, fl.Field().String())
	})
	return &RequestValidator{Validator: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	if err := rv.Validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
