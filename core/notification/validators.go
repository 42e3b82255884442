package notification

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/smartbill/core"
)

var (
	typeTag  = "notiftype"
	typeText = "invalid notification type"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(typeTag, func(fl validator.FieldLevel) bool {
		return core.StringInSlice(fl.Field().String(), AllTypes)
	})
	core.RegisterCustomTranslation(validate, translator, typeTag, typeText)
}
