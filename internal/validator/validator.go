package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"stoat-client/internal/ids"
	"stoat-client/rest"
)

const (
	MaxNameLength        = 32
	MaxDescriptionLength = 1024
	MaxContentLength     = 2000
	MaxReplies           = 5
	MinMessageLimit      = 1
	MaxMessageLimit      = 100
	maxEmailLength       = 254
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._+-]*[a-zA-Z0-9])?@[a-zA-Z0-9]([a-zA-Z0-9.-]*[a-zA-Z0-9])?\.[a-zA-Z]{2,}$`)

var emojiNameRegex = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	// "id" accepts a non-empty platform id of at most ids.MaxLength characters.
	err := v.RegisterValidation("id", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		return strings.TrimSpace(id) != "" && len(id) <= ids.MaxLength
	})
	if err != nil {
		panic(err)
	}

	err = v.RegisterValidation("emoji_name", func(fl validator.FieldLevel) bool {
		return emojiNameRegex.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
	return v
}

// Struct checks a request struct's validate tags. The first failing field is returned as a
// *rest.ArgumentError.
func Struct(op string, request any) error {
	err := validate.Struct(request)
	if err == nil {
		return nil
	}

	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) || len(validateErrs) == 0 {
		return fmt.Errorf("validate %s request: %w", op, err)
	}

	e := validateErrs[0]
	return &rest.ArgumentError{Op: op, Field: e.Field(), Reason: reason(e)}
}

func reason(e validator.FieldError) string {
	collection := e.Kind() == reflect.Slice || e.Kind() == reflect.Map
	switch e.Tag() {
	case "required":
		return "can't be empty"
	case "id":
		return fmt.Sprintf("must be a non-empty id of at most %d characters", ids.MaxLength)
	case "max", "lte":
		if collection {
			return "can't have more than " + e.Param() + " items"
		}
		if e.Kind() == reflect.String {
			return "length can't be more than " + e.Param() + " characters"
		}
		return "can't be more than " + e.Param()
	case "min", "gte":
		if collection {
			return "must have at least " + e.Param() + " items"
		}
		if e.Kind() == reflect.String {
			return "length must be at least " + e.Param() + " characters"
		}
		return "can't be less than " + e.Param()
	case "oneof":
		return "must be one of " + e.Param()
	case "email":
		return "is not a valid email"
	case "emoji_name":
		return "must be 1 to 32 lowercase letters, digits or underscores"
	case "excluded_with":
		return "can't be combined with " + e.Param()
	}
	return "failed the " + e.Tag() + " check"
}

func ID(op, field, id string) error {
	if strings.TrimSpace(id) == "" {
		return &rest.ArgumentError{Op: op, Field: field, Reason: "can't be empty"}
	}
	if len(id) > ids.MaxLength {
		return &rest.ArgumentError{Op: op, Field: field, Reason: fmt.Sprintf("length can't be more than %d characters", ids.MaxLength)}
	}
	return nil
}

func Name(op, field, name string) error {
	if strings.TrimSpace(name) == "" {
		return &rest.ArgumentError{Op: op, Field: field, Reason: "can't be empty"}
	}
	if len(name) > MaxNameLength {
		return &rest.ArgumentError{Op: op, Field: field, Reason: fmt.Sprintf("length can't be more than %d characters", MaxNameLength)}
	}
	return nil
}

func Description(op, field, description string) error {
	if len(description) > MaxDescriptionLength {
		return &rest.ArgumentError{Op: op, Field: field, Reason: fmt.Sprintf("length can't be more than %d characters", MaxDescriptionLength)}
	}
	return nil
}

func NotEmpty(op, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &rest.ArgumentError{Op: op, Field: field, Reason: "can't be empty"}
	}
	return nil
}

// Content checks a message body. A message needs text, attachments or embeds.
func Content(op, content string, hasExtras bool) error {
	if strings.TrimSpace(content) == "" && !hasExtras {
		return &rest.ArgumentError{Op: op, Field: "content", Reason: "can't be empty without attachments or embeds"}
	}
	if len(content) > MaxContentLength {
		return &rest.ArgumentError{Op: op, Field: "content", Reason: fmt.Sprintf("length can't be more than %d characters", MaxContentLength)}
	}
	return nil
}

func Limit(op string, limit int) error {
	if limit < MinMessageLimit || limit > MaxMessageLimit {
		return &rest.ArgumentError{Op: op, Field: "limit", Reason: fmt.Sprintf("must be between %d and %d", MinMessageLimit, MaxMessageLimit)}
	}
	return nil
}

func Email(op, email string) error {
	if len(email) > maxEmailLength {
		return &rest.ArgumentError{Op: op, Field: "email", Reason: fmt.Sprintf("length can't be more than %d characters", maxEmailLength)}
	}
	if !emailRegex.MatchString(email) {
		return &rest.ArgumentError{Op: op, Field: "email", Reason: "is not a valid email"}
	}
	return nil
}
