package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"messenger-service/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateProviderRefs checks the shape of a provider batch. Failures are
// keyed by index, e.g. "providers.1.id".
func ValidateProviderRefs(field string, refs []models.ProviderRef) error {
	errs := ValidationErrors{}
	for i, ref := range refs {
		err := validate.Struct(ref)
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs[fmt.Sprintf("%s.%d.%s", field, i, strings.ToLower(fe.Field()))] = fe.Tag()
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
