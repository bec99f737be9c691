package safe

import (
	"fmt"
	"reflect"

	"PShare/logger"
	"PShare/tools/errs"

	"go.uber.org/zap"
)

// MustNotNil panics if the given value is nil.
// Used for required collaborators while wiring the process.
func MustNotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic(fmt.Sprintf("%s must not be nil", name))
		}
	}
}

// Run calls f and turns a panic into an error carrying errs.ServerInternalError.
func Run(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.ErrPanic(r)
		}
	}()
	return f()
}

// Go starts f on a new goroutine; a panic is logged instead of crashing the process.
func Go(name string, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[safe] goroutine panic recovered", zap.String("name", name), zap.Any("panic", r))
			}
		}()
		f()
	}()
}
