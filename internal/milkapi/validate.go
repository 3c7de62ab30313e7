package milkapi

import (
	"errors"
	"reflect"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	minDailyLiters  = decimal.RequireFromString("0.5")
	maxDailyLiters  = decimal.NewFromInt(10)
	dailyLitersStep = decimal.RequireFromString("0.5")
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Zero dates read as empty so `required` rejects them.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(civil.Date)
		if !ok || d == (civil.Date{}) || !d.IsValid() {
			return ""
		}
		return d.String()
	}, civil.Date{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return ""
		}
		return d.String()
	}, decimal.Decimal{})
	_ = v.RegisterValidation("daily_liters", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return ValidDailyLiters(d)
	})
	return v
}

// ValidDailyLiters accepts 0.5 to 10 liters in half-liter steps.
func ValidDailyLiters(d decimal.Decimal) bool {
	if d.LessThan(minDailyLiters) || d.GreaterThan(maxDailyLiters) {
		return false
	}
	return d.Mod(dailyLitersStep).IsZero()
}

func (c *Client) validateStruct(v any) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fieldPath(fe)] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

// fieldPath drops the struct name from the namespace, so nested fields read
// like "deliveries[0].user_id".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
