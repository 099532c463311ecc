package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// В ошибках поля называются так же, как в JSON запроса
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// odd - размер ядра сглаживания: положительное нечетное число (0 - не задано)
	_ = validate.RegisterValidation("odd", func(fl validator.FieldLevel) bool {
		v := fl.Field().Int()
		return v == 0 || (v > 0 && v%2 == 1)
	})

	// lnglat - пара [долгота, широта] в градусах WGS84
	_ = validate.RegisterValidation("lnglat", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.Array || f.Len() != 2 {
			return false
		}
		lng, lat := f.Index(0).Float(), f.Index(1).Float()
		return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
	})
}

// Validate - валидация структуры
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// Fields раскладывает ошибку валидации по полям: путь поля -> нарушенное правило.
// Для прочих ошибок возвращает nil.
func Fields(err error) map[string]interface{} {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	fields := make(map[string]interface{}, len(ve))
	for _, fe := range ve {
		ns := fe.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		fields[ns] = fe.Tag()
	}
	return fields
}
