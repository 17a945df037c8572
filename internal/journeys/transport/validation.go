package transport

import (
	"medtour_backend/internal/journeys/domain"
	"medtour_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// TagJourneyState validates a state name, case-insensitively.
const TagJourneyState = "journey_state"

// RegisterValidations adds the journey rules to val.
func RegisterValidations(val *validator.Validator) error {
	return val.RegisterValidation(TagJourneyState, func(fl playground.FieldLevel) bool {
		_, ok := domain.ParseState(fl.Field().String())
		return ok
	})
}
