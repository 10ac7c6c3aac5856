// Package validation gatekeeps every task write. Functions here are pure: they
// normalize input and report the first rule it breaks.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	dom "tasktracker/internal/domain"
)

// MaxDescriptionLen is the longest description accepted, in characters.
const MaxDescriptionLen = 1000

var validate = newValidator()

type createInput struct {
	Description string `json:"description" validate:"required,max=1000"`
	OwnerID     string `json:"owner_id" validate:"required"`
}

type updateInput struct {
	Description string `json:"description" validate:"required,max=1000"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// ValidateForCreate checks a new task and returns its trimmed description.
func ValidateForCreate(description, ownerID string) (string, error) {
	in := createInput{
		Description: strings.TrimSpace(description),
		OwnerID:     strings.TrimSpace(ownerID),
	}
	if err := check(in); err != nil {
		return "", err
	}
	return in.Description, nil
}

// ValidateForUpdate checks a replacement description and returns it trimmed.
func ValidateForUpdate(description string) (string, error) {
	in := updateInput{Description: strings.TrimSpace(description)}
	if err := check(in); err != nil {
		return "", err
	}
	return in.Description, nil
}

func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate: %w", err)
	}
	fe := fieldErrs[0]
	return &dom.ValidationError{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "owner_id" {
			return "is required"
		}
		return "must not be empty"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}
