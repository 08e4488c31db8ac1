package dto

import (
	"errors"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/middlemark/middlemark/pkg/errorbank"
)

var validate = newValidator()

// newValidator configures the shared validator, reporting fields by their
// json names so boundary errors match the wire vocabulary.
func newValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateSubmission checks a normalized submission against the intake
// schema, returning a validation error naming the first offending field.
func ValidateSubmission(sub Submission) error {
	if err := validate.Struct(sub); err != nil {
		var verrs validatorv10.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := fe.Field()
			if fe.Tag() == "required" {
				return errorbank.Validation("missing required field: "+field, errorbank.WithDetail("field", field))
			}
			return errorbank.Validation("malformed field: "+field, errorbank.WithDetail("field", field))
		}
		return errorbank.Validation("invalid submission", errorbank.WithCause(err))
	}

	if sub.TotalPrice.Valid && sub.TotalPrice.Decimal.LessThan(decimal.Zero) {
		return errorbank.Validation("malformed field: totalPrice", errorbank.WithDetail("field", "totalPrice"))
	}
	if sub.DepositValue.Valid && sub.DepositValue.Decimal.LessThan(decimal.Zero) {
		return errorbank.Validation("malformed field: depositValue", errorbank.WithDetail("field", "depositValue"))
	}

	return nil
}
