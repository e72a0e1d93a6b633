// Package validator wires go-playground/validator into echo and turns field
// errors into the itemized messages returned to API clients.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	govalidator "github.com/go-playground/validator/v10"

	"github.com/iliyamo/admin-dashboard/internal/apperr"
	"github.com/iliyamo/admin-dashboard/internal/model"
)

var imageURLRegex = regexp.MustCompile(`(?i)^https?://.+\.(jpg|jpeg|png|webp|gif)$`)

// Validator implements echo.Validator.
type Validator struct {
	v *govalidator.Validate
}

// New registers the custom tags (role, category, imageurl) and reports field
// names by their json tag.
func New() (*Validator, error) {
	v := govalidator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	if err := v.RegisterValidation("role", validateRole); err != nil {
		return nil, fmt.Errorf("register role validator: %w", err)
	}
	if err := v.RegisterValidation("category", validateCategory); err != nil {
		return nil, fmt.Errorf("register category validator: %w", err)
	}
	if err := v.RegisterValidation("imageurl", validateImageURL); err != nil {
		return nil, fmt.Errorf("register imageurl validator: %w", err)
	}
	return &Validator{v: v}, nil
}

// Validate checks s and returns an *apperr.Error listing every violation.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs govalidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	items := make([]string, len(verrs))
	for i, fe := range verrs {
		items[i] = fmt.Sprintf("%s %s", fieldPath(fe), ValidationErrorMessage(fe))
	}
	return apperr.Validation(items...)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe govalidator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func ValidationErrorMessage(fe govalidator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("cannot exceed %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "role":
		return fmt.Sprintf("must be one of %v", model.Roles)
	case "category":
		return "must be a valid category"
	case "imageurl":
		return "must be a valid image URL"
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

func validateRole(fl govalidator.FieldLevel) bool {
	return model.Role(fl.Field().String()).Valid()
}

func validateCategory(fl govalidator.FieldLevel) bool {
	return model.Category(fl.Field().String()).Valid()
}

// validateImageURL accepts an empty string so that image slots can be cleared.
func validateImageURL(fl govalidator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || imageURLRegex.MatchString(s)
}
