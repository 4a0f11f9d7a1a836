package descriptor

import (
	"fmt"
	"reflect"

	"github.com/facebook/flipper-sub000/pkg/domain"
)

// Object is the universal fallback descriptor. It describes any value by its
// Go type and printed form and exposes no children.
type Object struct {
	Base
}

func (o *Object) Data(obj any) (domain.Groups, error) {
	props := domain.Props{
		{Key: "type", Value: domain.ReadOnly(domain.KindString, fmt.Sprintf("%T", obj))},
	}
	if s, ok := obj.(fmt.Stringer); ok {
		props.Set("value", domain.ReadOnly(domain.KindString, s.String()))
	} else if v := reflect.ValueOf(obj); v.IsValid() && v.Kind() != reflect.Pointer && v.Kind() != reflect.Struct {
		props.Set("value", domain.ReadOnly(domain.KindString, fmt.Sprint(obj)))
	}
	return domain.Groups{{Name: "Object", Props: props}}, nil
}
