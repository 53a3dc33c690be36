package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	paymentProviders = []string{"stripe", "razorpay"}
	urgencies        = []string{"urgent", "within_a_week", "flexible", ""}
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	validate.RegisterValidation("payment_provider", oneOf(paymentProviders))
	validate.RegisterValidation("urgency", oneOfFold(urgencies))
}

func oneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return contains(allowed, fl.Field().String())
	}
}

// oneOfFold ignores case and surrounding space.
func oneOfFold(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return contains(allowed, strings.ToLower(strings.TrimSpace(fl.Field().String())))
	}
}

func contains(allowed []string, value string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "max":
		return "Value is too long (max: " + fe.Param() + ")"
	case "gt":
		return "Value must be greater than " + fe.Param()
	case "gte":
		return "Value must be at least " + fe.Param()
	case "lte":
		return "Value must be at most " + fe.Param()
	case "payment_provider":
		return "Invalid provider. Must be: " + strings.Join(paymentProviders, ", ")
	case "urgency":
		return "Invalid urgency. Must be: urgent, within_a_week, or flexible"
	default:
		return "Invalid value"
	}
}
