// Package validation holds the field rules checked before anything is
// persisted. Rules are pure: they inspect values and report failures as
// *errors.ValidationError without touching the value or the store.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/go-playground/validator/v10"
)

const (
	tagPhone     = "phone"
	tagNotFuture = "notfuture"

	msgPhone     = "Invalid phone number format!"
	msgNotFuture = "Date and time is bigger than current!"
)

// Optional country code of one or two digits, then ten digits optionally
// grouped 3-3-4 by '-', '.' or a space.
var phonePattern = regexp.MustCompile(`^(\+\d{1,2})?(\d{3}[-.\s]?\d{3}[-.\s]?\d{4})$`)

// ValidatePhone fails unless phone matches the accepted formats.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return e.NewValidationError("phone", msgPhone)
	}
	return nil
}

// ValidateNotFuture fails when ts is strictly after now.
func ValidateNotFuture(ts time.Time, field string, now time.Time) error {
	if ts.After(now) {
		return e.NewValidationError(field, msgNotFuture)
	}
	return nil
}

// Validator enforces the declarative constraints in the model struct tags.
type Validator struct {
	validate *validator.Validate
	clock    models.Clock
}

// New builds a Validator whose "not in the future" rule reads clock.
func New(clock models.Clock) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	val := &Validator{validate: v, clock: clock}
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation(tagPhone, func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation(tagNotFuture, func(fl validator.FieldLevel) bool {
		ts, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		return !ts.After(val.clock.Now())
	})
	return val
}

// Struct validates every tagged field of s, including embedded ones.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
	}
	out := &e.ValidationError{}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, e.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case tagPhone:
		return msgPhone
	case tagNotFuture:
		return msgNotFuture
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
