package jobs

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of p.
func Validate(p Payload) error {
	if p == nil {
		return ErrInvalidPayload
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s: field %s failed %q", ErrInvalidPayload, p.JobType(), f.Field(), f.Tag())
		}
		return errors.Join(ErrInvalidPayload, err)
	}
	return nil
}
