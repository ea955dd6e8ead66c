package dto

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/compliance-portal/internal/domain"
	apperrors "github.com/spec-kit/compliance-portal/pkg/util"
)

var stateCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("rule_id", func(fl validator.FieldLevel) bool {
		return domain.RuleIDPattern.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	})
	_ = v.RegisterValidation("state_code", func(fl validator.FieldLevel) bool {
		return stateCodePattern.MatchString(domain.NormalizeStateCode(fl.Field().String()))
	})
	return v
}

// Validate checks req against its validate tags. A missing required field
// reports requiredMsg; any other failure reports a generic message. Both carry
// per-field details.
func Validate(req any, requiredMsg string) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("Validation failed", nil)
	}

	details := make(map[string]any, len(fieldErrs))
	missing := false
	for _, fe := range fieldErrs {
		details[fieldPath(fe)] = fe.Tag()
		if fe.Tag() == "required" {
			missing = true
		}
	}
	msg := "Validation failed"
	if missing && requiredMsg != "" {
		msg = requiredMsg
	}
	return apperrors.NewValidationError(msg, details)
}

// fieldPath drops the struct name from the namespace: "RuleRequest.sources[0]" -> "sources[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// InvalidPayload is returned when the body cannot be decoded.
func InvalidPayload() error {
	return apperrors.NewValidationError("Invalid request payload", nil)
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, value)
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDate(value)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid date", map[string]any{field: value})
	}
	return &t, nil
}
