package gatekit

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return ValidSlug(fl.Field().String())
		})
	})
	return validate
}

// RoleInput is the payload for creating or updating a role.
type RoleInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"required,slug,ne=*"`
	Description string `json:"description" validate:"max=1000"`
	Level       int    `json:"level" validate:"gte=0"`
	IsDefault   bool   `json:"is_default"`
}

// Validate checks the input and returns an ErrValidation or ErrInvalidSlug error.
func (in RoleInput) Validate() error {
	return validateStruct(in)
}

// Role converts the input into a model.
func (in RoleInput) Role() *Role {
	return &Role{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Level:       in.Level,
		IsDefault:   in.IsDefault,
	}
}

// PermissionInput is the payload for creating or updating a permission.
type PermissionInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"required,slug"`
	Description string `json:"description" validate:"max=1000"`
	Group       string `json:"group" validate:"max=255"`
}

// Validate checks the input and returns an ErrValidation or ErrInvalidSlug error.
func (in PermissionInput) Validate() error {
	return validateStruct(in)
}

// Permission converts the input into a model.
func (in PermissionInput) Permission() *Permission {
	return &Permission{
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		Group:       in.Group,
	}
}

func validateStruct(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewError(ErrValidation, err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Field() == "Slug" && fe.Tag() != "required" {
			return NewError(ErrInvalidSlug, fmt.Sprintf("%q", fe.Value()))
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return NewError(ErrValidation, strings.Join(msgs, ", "))
}
