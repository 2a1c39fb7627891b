package reactive

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidatedObject is an Object whose outer struct is checked against its `validate` struct tags.
// Validation always reads the current field values; there is no pending state.
//
// The outer struct must be bound, by Init or by any property helper, before it is queried.
type ValidatedObject struct {
	Object
}

// IsValid reports whether every tagged field of the outer struct passes.
func (v *ValidatedObject) IsValid() bool {
	return len(v.Errors()) == 0
}

// Error returns the message for property, or "" when it is valid.
func (v *ValidatedObject) Error(property string) string {
	return v.Errors()[property]
}

// Errors returns one message per failing property, keyed by field name.
// A value that cannot be validated at all, an unbound one included, is reported under the empty key.
func (v *ValidatedObject) Errors() map[string]string {
	errs := map[string]string{}

	sender := v.sender()
	if sender == &v.Object {
		errs[""] = ErrNotBound.Error()
		return errs
	}

	err := validate.Struct(sender)
	if err == nil {
		return errs
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		errs[""] = err.Error()
		return errs
	}

	for _, fe := range fields {
		if _, ok := errs[fe.StructField()]; !ok {
			errs[fe.StructField()] = fe.Error()
		}
	}

	return errs
}
