package safe

import (
	"fmt"
	"reflect"

	"linker/logger"
	"linker/tools/errs"

	"go.uber.org/zap"
)

// MustNotNil panics if the given value is nil.
// Useful for enforcing required dependencies at construction time.
func MustNotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic(fmt.Sprintf("%s must not be nil", name))
		}
	}
}

// Go starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func Go(name string, f func()) {
	go func() {
		defer Recover(name)
		f()
	}()
}

// Recover logs a recovered panic. It must be deferred directly.
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Error("panic recovered", zap.String("where", name), zap.Error(errs.ErrPanic(r)))
	}
}

// Call runs f and converts a panic into an error.
func Call(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.ErrPanic(r)
		}
	}()
	return f()
}
