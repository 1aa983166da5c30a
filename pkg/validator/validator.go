package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Default messages shown next to a field, keyed by validation tag.
var defaultMessages = map[string]string{
	"required": "必須です",
	"notblank": "必須です",
	"datetime": "YYYY-MM-DD形式で入力してください",
	"gte":      "0以上で入力してください",
	"min":      "0以上で入力してください",
	"uuid":     "IDの形式が正しくありません",
	"oneof":    "選択肢から選択してください",
}

const fallbackMessage = "入力内容が正しくありません"

type CustomValidator struct {
	validator *validator.Validate
	messages  map[string]string
}

func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so errors line up with the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic("validator: register notblank: " + err.Error())
	}

	messages := make(map[string]string, len(defaultMessages))
	for tag, msg := range defaultMessages {
		messages[tag] = msg
	}

	return &CustomValidator{
		validator: v,
		messages:  messages,
	}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// RegisterValidation adds a custom tag with the message reported when it fails.
func (cv *CustomValidator) RegisterValidation(tag string, fn validator.Func, message string) error {
	if err := cv.validator.RegisterValidation(tag, fn); err != nil {
		return err
	}
	cv.messages[tag] = message
	return nil
}

// RegisterCustomTypeFunc lets struct types such as decimals be validated as plain values.
func (cv *CustomValidator) RegisterCustomTypeFunc(fn validator.CustomTypeFunc, types ...interface{}) {
	cv.validator.RegisterCustomTypeFunc(fn, types...)
}

// FormatValidationErrors maps each failing field to the message of its first
// failing rule.
func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	fieldErrors := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fieldErrors
	}

	for _, e := range validationErrors {
		field := e.Field()
		if _, seen := fieldErrors[field]; seen {
			continue
		}
		if msg, ok := cv.messages[e.Tag()]; ok {
			fieldErrors[field] = msg
			continue
		}
		fieldErrors[field] = fallbackMessage
	}

	return fieldErrors
}
