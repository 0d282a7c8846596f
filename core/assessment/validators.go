package assessment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/matokeo/core"
)

var (
	statusTag  = "status"
	statusText = "invalid attempt status"

	answerTag  = "answer"
	answerText = "answer must be the letter of one of the choices"
)

// RegisterValidators registers the assessment validators and their translations on validate.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, answerTag, answerText)
}

func statusValidation(fl validator.FieldLevel) bool {
	return core.StringInSlice(fl.Field().String(), Statuses)
}

// questionStructValidation checks that the answer letter points to one of the choices.
func questionStructValidation(sl validator.StructLevel) {
	if nq, ok := sl.Current().Interface().(NewQuestion); ok {
		if nq.Answer != "" && choiceIndex(nq.Answer) >= len(nq.Choices) {
			sl.ReportError(nq.Answer, "answer", "Answer", answerTag, "")
		}
	}
}
