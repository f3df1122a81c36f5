package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MaxGroupNameLength        = 100
	MaxGroupDescriptionLength = 500
	DefaultMaxMessageLength   = 4000
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Struct validates `validate` tags and flattens the first failure into a
// client-facing message.
func Struct(v interface{}) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%s is required", field)
		case "max":
			return fmt.Errorf("%s must be at most %s characters", field, fe.Param())
		case "min", "gte":
			return fmt.Errorf("%s must be at least %s", field, fe.Param())
		case "oneof":
			return fmt.Errorf("%s must be one of: %s", field, fe.Param())
		default:
			return fmt.Errorf("%s is invalid", field)
		}
	}
	return err
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// TrimAndLimit trims whitespace and cuts s to max runes.
func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}

// ValidGroupName reports whether name is non-empty after trimming and within bounds.
func ValidGroupName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && utf8.RuneCountInString(name) <= MaxGroupNameLength
}
