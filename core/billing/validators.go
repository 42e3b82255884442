package billing

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/smartbill/core"
)

var (
	statusTag  = "billstatus"
	statusText = "invalid bill status"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return core.StringInSlice(fl.Field().String(), AllStatuses)
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}
