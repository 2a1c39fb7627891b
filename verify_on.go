//go:build rxverify

package reactive

import (
	"fmt"
	"reflect"
)

// verifyPropertyName panics unless name is a field, backing field or method of the sender.
func verifyPropertyName(o *Object, name string) {
	if name == "" {
		panic(fmt.Errorf("%w: empty name", ErrInvalidPropertyName))
	}

	sender := o.sender()
	if sender == o {
		return
	}

	typ := reflect.TypeOf(sender)
	if _, ok := typ.MethodByName(name); ok {
		return
	}
	if _, err := o.App().FieldCache().Resolve(typ, name); err == nil {
		return
	}

	base := typ
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.Struct {
		if _, ok := base.FieldByName(name); ok {
			return
		}
	}

	panic(fmt.Errorf("%w: %s has no property %s", ErrInvalidPropertyName, typ, name))
}
