package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/juku/core"
)

var (
	statusTag  = "attstatus"
	statusText = "must be one of 予定, 欠席, 未定 or 振替"
)

// RegisterValidators registers the schedule validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

// statusValidation accepts empty values; pair with `required` when needed.
func statusValidation(fl validator.FieldLevel) bool {
	str := fl.Field().String()
	return str == "" || Status(str).Valid()
}
